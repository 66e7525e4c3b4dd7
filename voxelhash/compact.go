package voxelhash

import (
	"github.com/golang/geo/r3"

	"go.viam.com/voxelhash/spatialmath"
)

// compactionPass produces a dense array of indices of currently-occupied,
// in-frustum hash entries so later passes iterate numOccupiedBlocks entries
// instead of every hash slot.
type compactionPass struct {
	table  *HashTable
	params HashParams
}

// compactionResult holds the compaction's output: the dense slot-index array and the
// occupied count.
type compactionResult struct {
	Compacted         []int32
	NumOccupiedBlocks int32
}

// run builds the decision array over every hash slot, scans it, and
// scatters occupied in-frustum slot indices into a dense array.
func (c *compactionPass) run(pose spatialmath.RigidTransform, intr Intrinsics) compactionResult {
	n := int(c.table.NumSlots())
	decision := make([]int32, n)

	camFromWorld := pose.Inverse()

	launchKernel(n, func(start, end int) {
		for i := start; i < end; i++ {
			e := c.table.EntryAt(int32(i))
			if e.Ptr < 0 {
				continue
			}
			center := BrickCenter(e.Pos, c.params.VoxelSize, c.params.BrickSize)
			if inFrustum(camFromWorld, intr, c.params.MaxIntegrationDistance, center) {
				decision[i] = 1
			}
		}
	})

	prefix, total := ExclusivePrefixSum(decision)

	compacted := make([]int32, total)
	launchKernel(n, func(start, end int) {
		for i := start; i < end; i++ {
			if decision[i] == 1 {
				compacted[prefix[i]] = int32(i)
			}
		}
	})

	return compactionResult{Compacted: compacted, NumOccupiedBlocks: total}
}

// inFrustum reports whether world-space point p projects inside the image
// and within maxDist of the camera, using the camera-from-world transform
// shared by the Allocator, Compaction and Integration passes.
func inFrustum(camFromWorld spatialmath.RigidTransform, intr Intrinsics, maxDist float64, p r3.Vector) bool {
	camPoint := camFromWorld.TransformPoint(p)
	if camPoint.Z <= 0 || camPoint.Z > maxDist {
		return false
	}
	_, _, ok := intr.Project(camPoint)
	return ok
}
