// Package voxelhash implements a GPU-resident-style spatially hashed
// truncated-signed-distance-field store for real-time depth fusion: a
// spatial hash table over fixed-size voxel bricks, a brick-pool allocator,
// and the per-frame allocate/compact/integrate/garbage-collect pipeline
// that drives them from a stream of depth frames and camera poses.
package voxelhash

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/voxelhash/logging"
	"go.viam.com/voxelhash/spatialmath"
)

// PassHook is an optional, no-op-by-default callback invoked around each
// pass of a frame's integration, useful for recording per-pass timings
// without compiling a profiling build.
type PassHook func(pass string, frame int, elapsed time.Duration)

// Pipeline sequences Allocate -> Compact -> Integrate -> Collect per frame
// and owns every device buffer (heap, hash table, voxel store) plus the
// live pose and frame counter. Pipeline is an explicit object with no
// hidden singleton: create and own one per reconstruction session.
type Pipeline struct {
	mu sync.Mutex

	params HashParams
	intr   Intrinsics
	logger logging.Logger

	heap  *BrickHeap
	table *HashTable
	store *VoxelStore

	state sessionState

	// Hook, if non-nil, is invoked after every pass of every frame.
	Hook PassHook
}

// New constructs a Pipeline sized from params for depth frames matching
// intr. It returns an error if params fails Validate.
func New(params HashParams, intr Intrinsics, logger logging.Logger) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid hash params")
	}

	heap := NewBrickHeap(params.NumBricks)
	table := NewHashTable(params, heap)
	store := NewVoxelStore(params)

	p := &Pipeline{
		params: params,
		intr:   intr,
		logger: logger,
		heap:   heap,
		table:  table,
		store:  store,
	}
	p.resetLocked()
	logger.Infow("voxelhash pipeline created", "numBricks", params.NumBricks, "brickSize", params.BrickSize)
	return p, nil
}

// Reset zeroes the frame counter, sets the pose to identity, sets
// numOccupiedBlocks to 0, reinitializes the heap free stack, and clears
// every hash entry to FreeEntry. Calling Reset twice in a row leaves the
// same observable state as calling it once.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	p.logger.Infow("voxelhash pipeline reset")
}

func (p *Pipeline) resetLocked() {
	p.state = sessionState{pose: spatialmath.Identity()}
	p.heap.Reset()
	p.table.Reset()
}

// SetPose sets the live camera pose without running any pass.
func (p *Pipeline) SetPose(pose spatialmath.RigidTransform) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.pose = pose
}

// GetPose returns the live camera pose.
func (p *Pipeline) GetPose() spatialmath.RigidTransform {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.pose
}

// FrameNumber returns the number of frames integrated since the last Reset.
func (p *Pipeline) FrameNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.frame
}

// GetHashTable returns the live hash table.
func (p *Pipeline) GetHashTable() *HashTable {
	return p.table
}

// GetHashParams returns the pipeline's immutable configuration.
func (p *Pipeline) GetHashParams() HashParams {
	return p.params
}

// GetHashState returns the diagnostic-counter and occupancy snapshot.
func (p *Pipeline) GetHashState() HashState {
	p.mu.Lock()
	defer p.mu.Unlock()
	stats := p.table.DiagnosticStats()
	return HashState{
		NumOccupiedBlocks: p.state.numOccupiedBlocks,
		HeapFree:          p.heap.FreeCount(),
		HeapCapacity:      p.heap.Capacity(),
		OverflowExhausted: stats.OverflowExhausted,
		ContentionLost:    stats.ContentionLost,
		Frame:             p.state.frame,
	}
}

// Integrate runs one full pipeline pass: allocate -> compact -> integrate
// -> collect -> frame++. It rejects frames whose dimensions disagree with
// the configured Intrinsics before launching any pass.
func (p *Pipeline) Integrate(pose spatialmath.RigidTransform, depth DepthFrame, color ColorFrame, mask Mask) error {
	if !matchesIntrinsics(p.intr, depth, color, mask) {
		return ErrFrameDimensionMismatch
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.pose = pose

	p.timed("alloc", func() {
		(&allocatorPass{table: p.table, params: p.params}).run(pose, p.intr, depth, mask)
	})

	var result compactionResult
	p.timed("compact", func() {
		result = (&compactionPass{table: p.table, params: p.params}).run(pose, p.intr)
	})
	p.state.numOccupiedBlocks = result.NumOccupiedBlocks

	p.timed("integrate", func() {
		(&integrationPass{table: p.table, store: p.store, params: p.params}).run(pose, p.intr, depth, color, result.Compacted)
	})

	if p.params.GCEnabled {
		p.timed("gc", func() {
			stats := (&gcPass{table: p.table, store: p.store, params: p.params}).run(p.state.frame, result.Compacted)
			if stats.BricksFreed > 0 {
				p.logger.Debugw("garbage collection freed bricks", "count", stats.BricksFreed, "frame", p.state.frame)
			}
		})
	}

	p.state.frame++

	if diag := p.table.DiagnosticStats(); diag.OverflowExhausted > 0 || diag.ContentionLost > 0 {
		p.logger.Debugw("hash table soft errors", "overflowExhausted", diag.OverflowExhausted, "contentionLost", diag.ContentionLost)
	}

	return nil
}

// RecompactForPose updates the live pose and reruns compaction without a
// full Integrate — for a raycast/mesh consumer that needs an up-to-date
// compacted list after a pose change but has no new depth frame to
// integrate.
func (p *Pipeline) RecompactForPose(pose spatialmath.RigidTransform) []int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.pose = pose
	result := (&compactionPass{table: p.table, params: p.params}).run(pose, p.intr)
	p.state.numOccupiedBlocks = result.NumOccupiedBlocks
	return result.Compacted
}

// CheckInvariants runs the debug heap/hash checker against the pipeline's
// current state. It is O(numSlots) and meant for tests and optional debug
// builds.
func (p *Pipeline) CheckInvariants() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.CheckInvariants()
}

func (p *Pipeline) timed(pass string, body func()) {
	start := time.Now()
	body()
	if p.Hook != nil {
		p.Hook(pass, p.state.frame, time.Since(start))
	}
}
