package voxelhash

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/voxelhash/spatialmath"
)

// allocatorPass walks a depth image and ensures every brick the view
// frustum touches has a hash entry and a heap brick allocated for it.
type allocatorPass struct {
	table  *HashTable
	params HashParams
}

// run resets the bucket mutexes for a fresh pass, then fans out over the
// depth image in row batches, one goroutine per batch.
func (a *allocatorPass) run(pose spatialmath.RigidTransform, intr Intrinsics, depth DepthFrame, mask Mask) {
	a.table.ResetMutexes()

	launchKernel(depth.Height, func(vStart, vEnd int) {
		for v := vStart; v < vEnd; v++ {
			for u := 0; u < depth.Width; u++ {
				a.allocPixel(pose, intr, depth, mask, u, v)
			}
		}
	})
}

func (a *allocatorPass) allocPixel(pose spatialmath.RigidTransform, intr Intrinsics, depth DepthFrame, mask Mask, u, v int) {
	d := float64(depth.At(u, v))
	if d <= 0 || d > a.params.MaxIntegrationDistance || !mask.Passes(u, v) {
		return
	}

	camPoint := intr.Unproject(u, v, d)
	worldPoint := pose.TransformPoint(camPoint)

	dir := camPoint.Normalize()
	worldDir := pose.TransformPoint(dir).Sub(pose.TransformPoint(r3.Vector{}))
	worldDir = worldDir.Normalize()

	trunc := a.params.Truncation * (1 + a.params.TruncScale*d)
	segStart := worldPoint.Sub(worldDir.Mul(trunc))
	segEnd := worldPoint.Add(worldDir.Mul(trunc))

	walkBricksAlongSegment(segStart, segEnd, a.params.VoxelSize, a.params.BrickSize, func(c BrickCoord) {
		a.table.Insert(c)
	})
}

// walkBricksAlongSegment enumerates every brick coordinate a 3D segment
// passes through using a DDA/3D-Bresenham-style walk: it steps along the
// segment's dominant axis and rounds the other two at each step, visiting
// each brick it crosses exactly once.
func walkBricksAlongSegment(start, end r3.Vector, voxelSize float64, brickSize int32, visit func(BrickCoord)) {
	startCoord := WorldToBrick(start, voxelSize, brickSize)
	endCoord := WorldToBrick(end, voxelSize, brickSize)

	visited := map[BrickCoord]bool{}
	emit := func(c BrickCoord) {
		if !visited[c] {
			visited[c] = true
			visit(c)
		}
	}

	dx := int(endCoord.X - startCoord.X)
	dy := int(endCoord.Y - startCoord.Y)
	dz := int(endCoord.Z - startCoord.Z)

	steps := maxAbs3(dx, dy, dz)
	if steps == 0 {
		emit(startCoord)
		return
	}

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c := BrickCoord{
			X: startCoord.X + int32(math.Round(float64(dx)*t)),
			Y: startCoord.Y + int32(math.Round(float64(dy)*t)),
			Z: startCoord.Z + int32(math.Round(float64(dz)*t)),
		}
		emit(c)
	}
}

func maxAbs3(a, b, c int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	if c < 0 {
		c = -c
	}
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
