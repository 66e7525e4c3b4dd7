package voxelhash

import (
	"github.com/golang/geo/r3"
)

// BrickCoord is the integer world-grid coordinate of a brick: the hash
// table's key. Two bricks at the same BrickCoord are the same brick.
type BrickCoord struct {
	X, Y, Z int32
}

// Voxel carries the truncated signed distance, integration weight and
// running-average color of a single cell in a brick.
type Voxel struct {
	SDF    float32
	Weight uint8
	Color  [3]uint8
}

// voxelIndex linearizes local brick coordinates (each in [0,brickSize)) into
// the brick's flat voxel slice, z-major over y-major over x.
func voxelIndex(lx, ly, lz, brickSize int32) int32 {
	return lz*brickSize*brickSize + ly*brickSize + lx
}

// WorldToBrick converts a world-space point to the brick coordinate that
// contains it, given the configured voxel size and brick size.
func WorldToBrick(p r3.Vector, voxelSize float64, brickSize int32) BrickCoord {
	extent := voxelSize * float64(brickSize)
	return BrickCoord{
		X: floorDiv(p.X, extent),
		Y: floorDiv(p.Y, extent),
		Z: floorDiv(p.Z, extent),
	}
}

// floorDiv computes floor(v/extent) as an int32, so brick coordinates stay
// monotonic across the origin (floor, not truncation, for negative v).
func floorDiv(v, extent float64) int32 {
	q := v / extent
	f := int32(q)
	if q < 0 && float64(f) != q {
		f--
	}
	return f
}

// BrickOrigin returns the world-space position of a brick's minimum corner.
func BrickOrigin(c BrickCoord, voxelSize float64, brickSize int32) r3.Vector {
	extent := voxelSize * float64(brickSize)
	return r3.Vector{
		X: float64(c.X) * extent,
		Y: float64(c.Y) * extent,
		Z: float64(c.Z) * extent,
	}
}

// BrickCenter returns the world-space position of a brick's geometric center.
func BrickCenter(c BrickCoord, voxelSize float64, brickSize int32) r3.Vector {
	extent := voxelSize * float64(brickSize)
	origin := BrickOrigin(c, voxelSize, brickSize)
	half := extent / 2
	return origin.Add(r3.Vector{X: half, Y: half, Z: half})
}

// VoxelWorldPosition returns the world-space center of the voxel at local
// coordinates (lx,ly,lz) within the brick at BrickCoord c.
func VoxelWorldPosition(c BrickCoord, lx, ly, lz, brickSize int32, voxelSize float64) r3.Vector {
	origin := BrickOrigin(c, voxelSize, brickSize)
	half := voxelSize / 2
	return origin.Add(r3.Vector{
		X: float64(lx)*voxelSize + half,
		Y: float64(ly)*voxelSize + half,
		Z: float64(lz)*voxelSize + half,
	})
}
