package voxelhash

import (
	"image/color"

	"go.viam.com/voxelhash/spatialmath"
)

// integrationPass updates every voxel of each compacted brick with the
// current depth/color frame: a running-average signed distance, weight and
// color.
type integrationPass struct {
	table  *HashTable
	store  *VoxelStore
	params HashParams
}

// run launches one goroutine batch per group of compacted bricks. A batch
// never splits a single brick, so no two goroutines ever touch the same
// voxel and no per-voxel locking is needed.
func (p *integrationPass) run(pose spatialmath.RigidTransform, intr Intrinsics, depth DepthFrame, color_ ColorFrame, compacted []int32) {
	camFromWorld := pose.Inverse()
	brickSize := p.params.BrickSize

	launchKernel(len(compacted), func(start, end int) {
		for i := start; i < end; i++ {
			slot := compacted[i]
			e := p.table.EntryAt(slot)
			if e.Ptr < 0 {
				continue
			}
			p.integrateBrick(camFromWorld, intr, depth, color_, e.Pos, e.Ptr, brickSize)
		}
	})
}

func (p *integrationPass) integrateBrick(camFromWorld spatialmath.RigidTransform, intr Intrinsics, depth DepthFrame, colorFrame ColorFrame, coord BrickCoord, ptr, brickSize int32) {
	for lz := int32(0); lz < brickSize; lz++ {
		for ly := int32(0); ly < brickSize; ly++ {
			for lx := int32(0); lx < brickSize; lx++ {
				p.integrateVoxel(camFromWorld, intr, depth, colorFrame, coord, ptr, lx, ly, lz)
			}
		}
	}
}

func (p *integrationPass) integrateVoxel(camFromWorld spatialmath.RigidTransform, intr Intrinsics, depth DepthFrame, colorFrame ColorFrame, coord BrickCoord, ptr, lx, ly, lz int32) {
	worldPos := VoxelWorldPosition(coord, lx, ly, lz, p.params.BrickSize, p.params.VoxelSize)
	camPos := camFromWorld.TransformPoint(worldPos)

	u, v, ok := intr.Project(camPos)
	if !ok {
		return
	}

	d := float64(depth.At(u, v))
	if d <= 0 {
		return
	}

	sdf := d - camPos.Z
	trunc := p.params.Truncation * (1 + p.params.TruncScale*d)
	if sdf < -trunc {
		return
	}
	if sdf > trunc {
		sdf = trunc
	}

	w := weightFor(p.params.IntegrationWeightSample, d)

	voxel := p.store.VoxelAt(ptr, lx, ly, lz)

	oldWeight := float64(voxel.Weight)
	newWeight := oldWeight + w
	voxel.SDF = float32((float64(voxel.SDF)*oldWeight + sdf*w) / newWeight)

	clamped := newWeight
	if clamped > float64(p.params.IntegrationWeightMax) {
		clamped = float64(p.params.IntegrationWeightMax)
	}
	voxel.Weight = uint8(clamped)

	if colorFrame.Pix != nil {
		c := colorFrame.At(u, v)
		voxel.Color = blendColor(voxel.Color, oldWeight, c, w)
	}
}

// weightFor is the integration weight contributed by a single sample. It is
// factored out, rather than inlined, so a future incidence- or
// depth-modulated weight can replace this constant-weight body without
// touching integrateVoxel.
func weightFor(sampleWeight, _ float64) float64 {
	return sampleWeight
}

func blendColor(old [3]uint8, oldWeight float64, c color.NRGBA, w float64) [3]uint8 {
	total := oldWeight + w
	blend := func(o uint8, n uint8) uint8 {
		return uint8((float64(o)*oldWeight + float64(n)*w) / total)
	}
	return [3]uint8{blend(old[0], c.R), blend(old[1], c.G), blend(old[2], c.B)}
}
