package voxelhash

import (
	"testing"

	"go.viam.com/test"
)

func smallTestParams() HashParams {
	return HashParams{
		NumBuckets:             16,
		BucketSize:             4,
		MaxOverflowChainLength: 16,
		NumBricks:              32,
		BrickSize:              8,
		VoxelSize:              0.01,
		MaxIntegrationDistance: 4.0,
		Truncation:             0.04,
		TruncScale:             0.01,
		IntegrationWeightSample: 1,
		IntegrationWeightMax:    255,
		GCEnabled:               true,
		StarvePeriod:            5,
		GCMinAbsSDFFactor:       0.9,
	}
}

func TestHashTableInsertThenLookup(t *testing.T) {
	params := smallTestParams()
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	pos := BrickCoord{X: 3, Y: -2, Z: 7}
	ptr := table.Insert(pos)
	test.That(t, ptr, test.ShouldNotEqual, NoneFound)
	test.That(t, table.Lookup(pos), test.ShouldEqual, ptr)
	test.That(t, table.CheckInvariants(), test.ShouldBeNil)
}

func TestHashTableInsertIsIdempotent(t *testing.T) {
	params := smallTestParams()
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	pos := BrickCoord{X: 1, Y: 1, Z: 1}
	first := table.Insert(pos)
	second := table.Insert(pos)
	test.That(t, first, test.ShouldEqual, second)
	test.That(t, heap.FreeCount(), test.ShouldEqual, params.NumBricks-1)
}

func TestHashTableRemoveThenLookupMisses(t *testing.T) {
	params := smallTestParams()
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	pos := BrickCoord{X: 5, Y: 0, Z: -3}
	table.Insert(pos)
	table.ResetMutexes()
	removed := table.Remove(pos)

	test.That(t, removed, test.ShouldBeTrue)
	test.That(t, table.Lookup(pos), test.ShouldEqual, NoneFound)
	test.That(t, heap.FreeCount(), test.ShouldEqual, params.NumBricks)
	test.That(t, table.CheckInvariants(), test.ShouldBeNil)
}

func TestHashTableLookupMissReturnsNoneFound(t *testing.T) {
	params := smallTestParams()
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	test.That(t, table.Lookup(BrickCoord{X: 100, Y: 100, Z: 100}), test.ShouldEqual, NoneFound)
}

func TestHashTableOverflowChainAcrossBucketCollision(t *testing.T) {
	params := smallTestParams()
	params.BucketSize = 1 // force every insert past the first into overflow
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	var inserted []BrickCoord
	var bucket int32 = -1
	for x := int32(0); x < 64 && len(inserted) < 4; x++ {
		pos := BrickCoord{X: x, Y: 0, Z: 0}
		b := table.BucketOf(pos)
		if bucket == -1 {
			bucket = b
		}
		if b != bucket {
			continue
		}
		ptr := table.Insert(pos)
		test.That(t, ptr, test.ShouldNotEqual, NoneFound)
		inserted = append(inserted, pos)
	}

	test.That(t, len(inserted), test.ShouldEqual, 4)
	for _, pos := range inserted {
		test.That(t, table.Lookup(pos), test.ShouldNotEqual, NoneFound)
	}
	test.That(t, table.CheckInvariants(), test.ShouldBeNil)
}

func TestHashTableHeapExhaustionLeavesTableConsistent(t *testing.T) {
	params := smallTestParams()
	params.NumBricks = 2
	params.NumBuckets = 4
	params.BucketSize = 4
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	test.That(t, table.Insert(BrickCoord{X: 0, Y: 0, Z: 0}), test.ShouldNotEqual, NoneFound)
	test.That(t, table.Insert(BrickCoord{X: 1, Y: 0, Z: 0}), test.ShouldNotEqual, NoneFound)

	exhausted := table.Insert(BrickCoord{X: 2, Y: 0, Z: 0})
	test.That(t, exhausted, test.ShouldEqual, NoneFound)
	test.That(t, table.CheckInvariants(), test.ShouldBeNil)
}

func TestHashTableResetClearsAllEntries(t *testing.T) {
	params := smallTestParams()
	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)

	table.Insert(BrickCoord{X: 9, Y: 9, Z: 9})
	table.Reset()
	heap.Reset()

	test.That(t, table.Lookup(BrickCoord{X: 9, Y: 9, Z: 9}), test.ShouldEqual, NoneFound)
	test.That(t, heap.FreeCount(), test.ShouldEqual, params.NumBricks)
}
