package voxelhash

import (
	"testing"

	"go.viam.com/test"
)

func TestExclusivePrefixSumEmpty(t *testing.T) {
	out, total := ExclusivePrefixSum(nil)
	test.That(t, len(out), test.ShouldEqual, 0)
	test.That(t, total, test.ShouldEqual, int32(0))
}

func TestExclusivePrefixSumSmall(t *testing.T) {
	in := []int32{1, 0, 1, 1, 0, 1}
	out, total := ExclusivePrefixSum(in)
	test.That(t, out, test.ShouldResemble, []int32{0, 1, 1, 2, 3, 3})
	test.That(t, total, test.ShouldEqual, int32(4))
}

func TestExclusivePrefixSumLargeMatchesSequential(t *testing.T) {
	const n = 1 << 18 // above parallelScanThreshold
	in := make([]int32, n)
	for i := range in {
		if i%3 == 0 {
			in[i] = 1
		}
	}

	out, total := ExclusivePrefixSum(in)

	wantOut := make([]int32, n)
	var sum int32
	for i, v := range in {
		wantOut[i] = sum
		sum += v
	}

	test.That(t, total, test.ShouldEqual, sum)
	test.That(t, out, test.ShouldResemble, wantOut)
}
