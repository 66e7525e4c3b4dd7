package voxelhash

import "github.com/pkg/errors"

// ErrFrameDimensionMismatch is returned by Pipeline.Integrate when a depth,
// color, or mask frame's dimensions disagree with the configured
// Intrinsics. It is rejected before any pass is launched.
var ErrFrameDimensionMismatch = errors.New("frame dimensions do not match configured intrinsics")

// HashState is a diagnostic snapshot of a Pipeline: soft-error counts from
// the current hash table and heap, plus occupancy and frame bookkeeping.
type HashState struct {
	NumOccupiedBlocks int32
	HeapFree          int32
	HeapCapacity      int32
	OverflowExhausted int32
	ContentionLost    int32
	Frame             int
}
