package voxelhash

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

const (
	// FreeEntry marks a hash slot as empty.
	FreeEntry int32 = -2
	// NoAlloc marks a hash slot as reserved this frame but not yet backed
	// by a heap brick. It must never survive past the end of a frame.
	NoAlloc int32 = -1
	// NoneFound is returned by Lookup when no entry matches the queried
	// position.
	NoneFound int32 = -2

	bucketPrime1 = 73856093
	bucketPrime2 = 19349669
	bucketPrime3 = 83492791
)

// HashEntry is the fixed-size record stored at every hash slot, head or
// overflow.
type HashEntry struct {
	Pos    BrickCoord
	Offset int32 // overflow-chain link to the next slot; set on a bucket's last head slot and on overflow slots, 0 ends the chain
	Ptr    int32 // FreeEntry, NoAlloc, or a heap brick index >= 0
}

func freeHashEntry() HashEntry {
	return HashEntry{Ptr: FreeEntry}
}

// HashTable is an open-addressed spatial hash table over brick coordinates:
// numBuckets buckets of bucketSize contiguous head slots, backed by a
// shared overflow tail, each bucket guarded by its own mutex word.
type HashTable struct {
	params HashParams
	heap   *BrickHeap

	entries []HashEntry // head region [0, headSlots) then overflow tail
	mutex   []int32     // one word per bucket; 0 = free, 1 = owned this pass

	overflowCounter int32 // atomic: next free overflow slot index

	overflowExhausted int32 // atomic diagnostic counter
	contentionLost    int32 // atomic diagnostic counter
}

// NewHashTable constructs a hash table sized from params, backed by heap
// for brick allocation/free.
func NewHashTable(params HashParams, heap *BrickHeap) *HashTable {
	t := &HashTable{
		params:  params,
		heap:    heap,
		entries: make([]HashEntry, params.totalSlots()),
		mutex:   make([]int32, params.NumBuckets),
	}
	t.Reset()
	return t
}

// Reset clears every hash entry to FreeEntry and rewinds the overflow
// counter.
func (t *HashTable) Reset() {
	for i := range t.entries {
		t.entries[i] = freeHashEntry()
	}
	for i := range t.mutex {
		t.mutex[i] = 0
	}
	atomic.StoreInt32(&t.overflowCounter, 0)
	atomic.StoreInt32(&t.overflowExhausted, 0)
	atomic.StoreInt32(&t.contentionLost, 0)
}

// ResetMutexes zeroes every bucket mutex word. Called by the orchestrator
// at the start of each pass that mutates bucket chains.
func (t *HashTable) ResetMutexes() {
	for i := range t.mutex {
		atomic.StoreInt32(&t.mutex[i], 0)
	}
}

// BucketOf computes the bucket index for pos using a three-prime spatial
// hash, biased into [0, numBuckets).
func (t *HashTable) BucketOf(pos BrickCoord) int32 {
	h := int32(uint32(pos.X)*bucketPrime1) ^ int32(uint32(pos.Y)*bucketPrime2) ^ int32(uint32(pos.Z)*bucketPrime3)
	b := h % t.params.NumBuckets
	if b < 0 {
		b += t.params.NumBuckets
	}
	return b
}

// headRange returns the slot index range of bucket b's head slots.
func (t *HashTable) headRange(b int32) (start, end int32) {
	start = b * t.params.BucketSize
	return start, start + t.params.BucketSize
}

// tryOwnBucket attempts to acquire bucket b's mutex via atomic exchange. If
// another caller already owns the bucket this pass, the caller abandons its
// attempt rather than blocking.
func (t *HashTable) tryOwnBucket(b int32) bool {
	return atomic.SwapInt32(&t.mutex[b], 1) == 0
}

func (t *HashTable) releaseBucket(b int32) {
	atomic.StoreInt32(&t.mutex[b], 0)
}

// Lookup walks bucket H(pos)'s head slots, then follows overflow links, with
// no locking. A concurrent mutator only changes links after it owns the
// bucket, so a reader observes either a pre- or a post-mutation snapshot,
// and either is a valid answer.
func (t *HashTable) Lookup(pos BrickCoord) int32 {
	b := t.BucketOf(pos)
	start, end := t.headRange(b)
	for slot := start; slot < end; slot++ {
		e := t.entries[slot]
		if e.Ptr != FreeEntry && e.Pos == pos {
			return e.Ptr
		}
	}
	// Walk the overflow chain rooted at the bucket's last head slot's Offset.
	next := t.entries[end-1].Offset
	for next != 0 {
		e := t.entries[next]
		if e.Ptr != FreeEntry && e.Pos == pos {
			return e.Ptr
		}
		next = e.Offset
	}
	return NoneFound
}

// Insert returns the existing Ptr for pos if present; otherwise it claims a
// free head slot or appends an overflow slot, allocates a brick from the
// heap, and returns the new Ptr. Insert is atomic with respect to other
// mutators of the same bucket via the per-bucket lock; on contention loss
// it increments ContentionLost and returns NoneFound, deferring the
// allocation to a future frame.
func (t *HashTable) Insert(pos BrickCoord) int32 {
	if ptr := t.Lookup(pos); ptr != NoneFound {
		return ptr
	}

	b := t.BucketOf(pos)
	start, end := t.headRange(b)

	if !t.tryOwnBucket(b) {
		atomic.AddInt32(&t.contentionLost, 1)
		return NoneFound
	}
	defer t.releaseBucket(b)

	// Re-check for the entry under ownership: another owner may have
	// inserted it before we acquired the mutex.
	if ptr := t.Lookup(pos); ptr != NoneFound {
		return ptr
	}

	brickIdx, ok := t.heap.Alloc()
	if !ok {
		return NoneFound
	}

	for slot := start; slot < end; slot++ {
		if t.entries[slot].Ptr == FreeEntry {
			t.entries[slot] = HashEntry{Pos: pos, Ptr: brickIdx, Offset: t.entries[slot].Offset}
			return brickIdx
		}
	}

	overflowSlot, ok := t.allocOverflow()
	if !ok {
		t.heap.Free(brickIdx)
		atomic.AddInt32(&t.overflowExhausted, 1)
		return NoneFound
	}
	t.entries[overflowSlot] = HashEntry{Pos: pos, Ptr: brickIdx}
	// Link the new overflow entry to the end of the bucket's chain.
	tail := end - 1
	for t.entries[tail].Offset != 0 {
		tail = t.entries[tail].Offset
	}
	t.entries[tail].Offset = overflowSlot
	return brickIdx
}

// allocOverflow claims the next slot in the shared overflow tail.
func (t *HashTable) allocOverflow() (int32, bool) {
	idx := atomic.AddInt32(&t.overflowCounter, 1) - 1
	if idx >= t.params.overflowSlots() {
		atomic.AddInt32(&t.overflowCounter, -1)
		return 0, false
	}
	return t.params.headSlots() + idx, true
}

// Remove finds the entry for pos, frees its brick back to the heap, and
// unlinks it from its bucket chain: a head slot is cleared to FreeEntry
// while promoting the first overflow entry into it (if any); an overflow
// slot is cleared and its predecessor's Offset is relinked to its
// successor. Remove is atomic on the bucket via the same lossy lock Insert
// uses; if the bucket is contended this frame, the deletion is simply not
// attempted (the caller, the GC free sub-kernel, resets mutexes immediately
// before calling Remove so contention should not occur in practice).
func (t *HashTable) Remove(pos BrickCoord) bool {
	b := t.BucketOf(pos)
	if !t.tryOwnBucket(b) {
		atomic.AddInt32(&t.contentionLost, 1)
		return false
	}
	defer t.releaseBucket(b)

	start, end := t.headRange(b)
	for slot := start; slot < end; slot++ {
		e := t.entries[slot]
		if e.Ptr == FreeEntry || e.Pos != pos {
			continue
		}
		t.heap.Free(e.Ptr)
		if e.Offset == 0 {
			t.entries[slot] = freeHashEntry()
		} else {
			// Promote the first overflow entry into the head slot, then
			// free its old overflow slot position.
			promoted := t.entries[e.Offset]
			oldOverflowSlot := e.Offset
			t.entries[slot] = promoted
			t.entries[oldOverflowSlot] = freeHashEntry()
		}
		return true
	}

	// Walk the overflow chain tracking the predecessor link.
	predSlot := end - 1
	next := t.entries[predSlot].Offset
	for next != 0 {
		e := t.entries[next]
		if e.Ptr != FreeEntry && e.Pos == pos {
			t.heap.Free(e.Ptr)
			t.entries[predSlot].Offset = e.Offset
			t.entries[next] = freeHashEntry()
			return true
		}
		predSlot = next
		next = e.Offset
	}
	return false
}

// Stats is a snapshot of the hash table's soft-error counters.
type Stats struct {
	OverflowExhausted int32
	ContentionLost    int32
}

// DiagnosticStats returns a snapshot of the hash table's soft-error counters.
func (t *HashTable) DiagnosticStats() Stats {
	return Stats{
		OverflowExhausted: atomic.LoadInt32(&t.overflowExhausted),
		ContentionLost:    atomic.LoadInt32(&t.contentionLost),
	}
}

// NumSlots returns the total number of hash slots (head + overflow).
func (t *HashTable) NumSlots() int32 {
	return int32(len(t.entries))
}

// EntryAt returns the hash entry at a global slot index, for compaction.
func (t *HashTable) EntryAt(slot int32) HashEntry {
	return t.entries[slot]
}

// CheckInvariants is a debug-only consistency check: it verifies that every
// occupied entry's brick pointer is reachable via Lookup, that no brick
// pointer appears twice, that occupied pointers never collide with the
// heap's free stack, and that every brick index is accounted for by either
// the free stack or an occupied entry. It is O(numSlots + numBricks) and intended for tests
// and optional debug builds, not per-frame use.
func (t *HashTable) CheckInvariants() error {
	if err := t.heap.CheckInvariant(); err != nil {
		return err
	}

	freeCount := t.heap.FreeCount()
	free := make(map[int32]bool, freeCount)
	for i := int32(0); i < freeCount; i++ {
		free[t.heap.heap[i]] = true
	}

	seenPtr := make(map[int32]BrickCoord)
	for slot, e := range t.entries {
		if e.Ptr == FreeEntry {
			continue
		}
		if e.Ptr == NoAlloc {
			return errors.Errorf("hash invariant violated: slot %d still NoAlloc at end of frame", slot)
		}
		if free[e.Ptr] {
			return errors.Errorf("hash invariant violated: ptr %d at slot %d is also on the free heap", e.Ptr, slot)
		}
		if prev, ok := seenPtr[e.Ptr]; ok {
			return errors.Errorf("hash invariant violated: ptr %d claimed by both %v and %v", e.Ptr, prev, e.Pos)
		}
		seenPtr[e.Ptr] = e.Pos

		if got := t.Lookup(e.Pos); got != e.Ptr {
			return errors.Errorf("hash invariant violated: entry at %v unreachable (lookup returned %d, want %d)", e.Pos, got, e.Ptr)
		}
	}
	if accounted := freeCount + int32(len(seenPtr)); accounted != t.heap.Capacity() {
		return errors.Errorf("hash invariant violated: %d of %d bricks are neither free nor owned by an entry", t.heap.Capacity()-accounted, t.heap.Capacity())
	}
	return nil
}
