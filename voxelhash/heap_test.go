package voxelhash

import (
	"testing"

	"go.viam.com/test"
)

func TestBrickHeapAllocFreeRoundTrip(t *testing.T) {
	h := NewBrickHeap(8)
	test.That(t, h.FreeCount(), test.ShouldEqual, int32(8))
	test.That(t, h.CheckInvariant(), test.ShouldBeNil)

	idx, ok := h.Alloc()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, h.FreeCount(), test.ShouldEqual, int32(7))

	h.Free(idx)
	test.That(t, h.FreeCount(), test.ShouldEqual, int32(8))
	test.That(t, h.CheckInvariant(), test.ShouldBeNil)
}

func TestBrickHeapExhaustion(t *testing.T) {
	h := NewBrickHeap(2)
	_, ok1 := h.Alloc()
	_, ok2 := h.Alloc()
	test.That(t, ok1, test.ShouldBeTrue)
	test.That(t, ok2, test.ShouldBeTrue)

	_, ok3 := h.Alloc()
	test.That(t, ok3, test.ShouldBeFalse)
	test.That(t, h.FreeCount(), test.ShouldEqual, int32(0))

	// A failed Alloc must not have drifted the counter.
	_, ok4 := h.Alloc()
	test.That(t, ok4, test.ShouldBeFalse)
}

func TestBrickHeapAllocatesEveryIndexExactlyOnce(t *testing.T) {
	const n = 32
	h := NewBrickHeap(n)

	seen := make(map[int32]bool, n)
	for i := 0; i < n; i++ {
		idx, ok := h.Alloc()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, seen[idx], test.ShouldBeFalse)
		seen[idx] = true
	}
	_, ok := h.Alloc()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestBrickHeapResetIsIdempotent(t *testing.T) {
	h := NewBrickHeap(4)
	_, _ = h.Alloc()
	_, _ = h.Alloc()

	h.Reset()
	first := h.FreeCount()
	h.Reset()
	second := h.FreeCount()

	test.That(t, first, test.ShouldEqual, int32(4))
	test.That(t, second, test.ShouldEqual, int32(4))
}
