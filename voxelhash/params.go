package voxelhash

import (
	"github.com/pkg/errors"

	"go.viam.com/voxelhash/spatialmath"
)

// HashParams configures the geometry and thresholds of a reconstruction
// session: hash table shape, brick/voxel geometry, and the integration and
// garbage-collection thresholds. All device buffers are sized from these
// values at construction and never resized, so HashParams is immutable for
// the lifetime of a Pipeline.
type HashParams struct {
	NumBuckets int32 `json:"numBuckets"`
	BucketSize int32 `json:"bucketSize"`
	// MaxOverflowChainLength is the per-bucket overflow budget: the shared
	// overflow tail is sized at MaxOverflowChainLength*NumBuckets slots, so
	// every bucket has room for this many overflow entries on average before
	// Insert starts reporting overflow exhaustion.
	MaxOverflowChainLength int32 `json:"maxOverflowChainLength"`

	NumBricks int32 `json:"numBricks"`
	BrickSize int32 `json:"brickSize"`
	VoxelSize float64 `json:"voxelSize"`

	MaxIntegrationDistance float64 `json:"maxIntegrationDistance"`
	Truncation             float64 `json:"truncation"`
	TruncScale             float64 `json:"truncScale"`

	IntegrationWeightSample float64 `json:"integrationWeightSample"`
	IntegrationWeightMax    uint8   `json:"integrationWeightMax"`

	// GCEnabled turns on the garbage collection pass. When false, Integrate
	// never starves or frees bricks.
	GCEnabled bool `json:"gcEnabled"`
	// StarvePeriod is the frame interval at which the starve sub-kernel runs.
	StarvePeriod int `json:"starvePeriod"`
	// GCMinAbsSDFFactor is the minAbsSDF threshold as a multiple of Truncation
	// above which an otherwise unreinforced brick is marked for deletion.
	GCMinAbsSDFFactor float64 `json:"gcMinAbsSDFFactor"`
}

// DefaultHashParams returns reasonable production defaults: 8^3 voxel
// bricks at 1cm resolution.
func DefaultHashParams() HashParams {
	return HashParams{
		NumBuckets:             500000,
		BucketSize:             10,
		MaxOverflowChainLength: 2,
		NumBricks:              500000,
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

// Validate rejects a HashParams with non-positive geometry or thresholds
// that would make the hash table or heap unusable. This is the host-side
// pre-check analogous to the caller-contract checks integrate() performs.
func (p HashParams) Validate() error {
	switch {
	case p.NumBuckets <= 0:
		return errors.New("numBuckets must be positive")
	case p.BucketSize <= 0:
		return errors.New("bucketSize must be positive")
	case p.MaxOverflowChainLength < 0:
		return errors.New("maxOverflowChainLength must be non-negative")
	case p.NumBricks <= 0:
		return errors.New("numBricks must be positive")
	case p.BrickSize <= 0:
		return errors.New("brickSize must be positive")
	case p.VoxelSize <= 0:
		return errors.New("voxelSize must be positive")
	case p.Truncation <= 0:
		return errors.New("truncation must be positive")
	case p.IntegrationWeightMax == 0:
		return errors.New("integrationWeightMax must be positive")
	}
	return nil
}

// headSlots is the number of bucket-head slots across the whole table.
func (p HashParams) headSlots() int32 {
	return p.NumBuckets * p.BucketSize
}

// overflowSlots is the size of the shared overflow tail region:
// MaxOverflowChainLength slots per bucket in total, handed out first-come
// from one shared array with no per-bucket quota.
func (p HashParams) overflowSlots() int32 {
	return p.MaxOverflowChainLength * p.NumBuckets
}

// totalSlots is the full extent of the hash entry array (head + overflow).
func (p HashParams) totalSlots() int32 {
	return p.headSlots() + p.overflowSlots()
}

// voxelsPerBrick is B^3.
func (p HashParams) voxelsPerBrick() int32 {
	return p.BrickSize * p.BrickSize * p.BrickSize
}

// sessionState is the mutable per-session state the orchestrator owns
// alongside the immutable HashParams: the live pose and frame counter.
type sessionState struct {
	pose              spatialmath.RigidTransform
	frame             int
	numOccupiedBlocks int32
}
