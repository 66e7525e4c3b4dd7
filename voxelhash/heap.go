package voxelhash

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// BrickHeap is a lock-free stack of free brick indices over a single
// pre-allocated array, the pool allocator handing out fixed-size voxel
// bricks to the hash table. The counter is the only point of contention:
// Alloc and Free touch it with a single atomic add, never a mutex, so no
// caller ever blocks waiting for a brick.
type BrickHeap struct {
	heap    []int32
	counter int32 // atomic: index of the topmost free entry
	n       int32
}

// NewBrickHeap allocates a heap of n bricks and initializes the free stack
// to heap[i] = n-1-i, counter = n-1.
func NewBrickHeap(n int32) *BrickHeap {
	h := &BrickHeap{heap: make([]int32, n), n: n}
	h.Reset()
	return h
}

// Reset reinitializes the free stack to its construction-time state.
func (h *BrickHeap) Reset() {
	for i := int32(0); i < h.n; i++ {
		h.heap[i] = h.n - 1 - i
	}
	atomic.StoreInt32(&h.counter, h.n-1)
}

// Alloc pops a free brick index from the heap. ok is false if the heap is
// exhausted; callers must check ok before using idx, since a failed Alloc
// returns the zero value rather than an error. A failed Alloc restores the
// counter so it never drifts below -1.
func (h *BrickHeap) Alloc() (idx int32, ok bool) {
	top := atomic.AddInt32(&h.counter, -1) + 1
	if top < 0 {
		atomic.AddInt32(&h.counter, 1)
		return 0, false
	}
	return h.heap[top], true
}

// Free pushes idx back onto the free stack. The pipeline guarantees Alloc
// and Free for the same brick are never issued concurrently (they run in
// distinct pass launches separated by a barrier), so no additional
// synchronization is required beyond the atomic counter bump.
func (h *BrickHeap) Free(idx int32) {
	newTop := atomic.AddInt32(&h.counter, 1)
	h.heap[newTop] = idx
}

// FreeCount returns the number of currently free brick slots.
func (h *BrickHeap) FreeCount() int32 {
	return atomic.LoadInt32(&h.counter) + 1
}

// Capacity returns the total number of bricks the heap was constructed with.
func (h *BrickHeap) Capacity() int32 {
	return h.n
}

// CheckInvariant verifies that every index in [0,n) appears in the free
// stack at most once. It does not check reachability against the hash
// table; HashTable.CheckInvariants does that jointly. This is a debug-only
// check, not meant for the per-frame hot path.
func (h *BrickHeap) CheckInvariant() error {
	freeCount := h.FreeCount()
	seen := make(map[int32]bool, freeCount)
	for i := int32(0); i < freeCount; i++ {
		idx := h.heap[i]
		if idx < 0 || idx >= h.n {
			return errors.Errorf("heap invariant violated: free slot %d holds out-of-range index %d", i, idx)
		}
		if seen[idx] {
			return errors.Errorf("heap invariant violated: duplicate free pointer %d", idx)
		}
		seen[idx] = true
	}
	return nil
}
