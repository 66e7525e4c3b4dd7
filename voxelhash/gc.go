package voxelhash

import "math"

// gcPass reclaims bricks that have gone unreinforced for too long: three
// sub-kernels separated by barriers — starve, identify, free.
type gcPass struct {
	table  *HashTable
	store  *VoxelStore
	params HashParams
}

// GCStats reports how many bricks a garbage collection run freed.
type GCStats struct {
	BricksFreed int
}

// brickRef pins down a brick by both its position and its heap pointer at
// the moment it was flagged, so free can act on it after later removals
// have shuffled other entries around the hash table.
type brickRef struct {
	Pos BrickCoord
	Ptr int32
}

// run executes the starve/identify/free sequence for the given frame number
// against the compacted brick list the compaction pass produced. Bucket
// mutexes are reset immediately before the free sub-kernel, since unlinking
// overflow entries requires the same per-bucket ownership protocol Insert uses.
func (g *gcPass) run(frame int, compacted []int32) GCStats {
	if frame > 0 && g.params.StarvePeriod > 0 && frame%g.params.StarvePeriod == 0 {
		g.starve(compacted)
	}

	toFree := g.identify(compacted)

	g.table.ResetMutexes()
	return g.free(toFree)
}

// starve decrements every voxel's weight by 1 (floor 0) for each compacted
// brick, so bricks the current frame no longer sees gradually lose support.
func (g *gcPass) starve(compacted []int32) {
	launchKernel(len(compacted), func(start, end int) {
		for i := start; i < end; i++ {
			slot := compacted[i]
			e := g.table.EntryAt(slot)
			if e.Ptr < 0 {
				continue
			}
			brick := g.store.Brick(e.Ptr)
			for j := range brick {
				if brick[j].Weight > 0 {
					brick[j].Weight--
				}
			}
		}
	})
}

// identify computes maxWeight and minAbsSDF for each compacted brick and
// flags it for deletion when maxWeight==0 or minAbsSDF exceeds the
// configured threshold times Truncation. It captures the position and heap
// pointer of every flagged brick up front, since free runs after entries
// have started moving around the table.
func (g *gcPass) identify(compacted []int32) []brickRef {
	flagged := make([]brickRef, len(compacted))
	keep := make([]bool, len(compacted))
	threshold := g.params.GCMinAbsSDFFactor * g.params.Truncation

	launchKernel(len(compacted), func(start, end int) {
		for i := start; i < end; i++ {
			slot := compacted[i]
			e := g.table.EntryAt(slot)
			if e.Ptr < 0 {
				continue
			}
			brick := g.store.Brick(e.Ptr)

			var maxWeight uint8
			minAbsSDF := math.MaxFloat64
			for _, v := range brick {
				if v.Weight > maxWeight {
					maxWeight = v.Weight
				}
				abs := math.Abs(float64(v.SDF))
				if abs < minAbsSDF {
					minAbsSDF = abs
				}
			}

			if maxWeight == 0 || minAbsSDF > threshold {
				flagged[i] = brickRef{Pos: e.Pos, Ptr: e.Ptr}
				keep[i] = true
			}
		}
	})

	var toFree []brickRef
	for i, k := range keep {
		if k {
			toFree = append(toFree, flagged[i])
		}
	}
	return toFree
}

// free clears and removes every brick identify flagged, keyed by the
// position and pointer captured at flag time rather than by re-reading a
// slot index: Remove can promote an overflow entry into a head slot and
// blank the overflow slot it came from, so a later flagged brick sharing
// that bucket would otherwise be skipped once its original slot index no
// longer points at it.
func (g *gcPass) free(toFree []brickRef) GCStats {
	freed := 0
	for _, ref := range toFree {
		g.store.ClearBrick(ref.Ptr)
		if g.table.Remove(ref.Pos) {
			freed++
		}
	}
	return GCStats{BricksFreed: freed}
}
