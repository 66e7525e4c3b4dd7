package voxelhash

// ExclusivePrefixSum computes out[i] = sum(in[0:i]) and total = sum(in) over
// 32-bit occupancy flags. Compaction uses it to turn an occupied/not
// decision array into the dense slot-index array each later pass iterates.
//
// For small inputs it runs sequentially; above parallelScanThreshold it
// splits the input into chunks, sums each chunk concurrently, then folds
// the per-chunk totals into a running offset — the same shape as a device
// scan's block-then-combine strategy, without claiming GPU-level throughput.
func ExclusivePrefixSum(in []int32) (out []int32, total int32) {
	n := len(in)
	out = make([]int32, n)
	if n == 0 {
		return out, 0
	}
	if n < parallelScanThreshold {
		var sum int32
		for i, v := range in {
			out[i] = sum
			sum += v
		}
		return out, sum
	}
	return parallelExclusivePrefixSum(in, out)
}

const parallelScanThreshold = 1 << 16

func parallelExclusivePrefixSum(in, out []int32) (_ []int32, total int32) {
	numChunks := numScanWorkers
	n := len(in)
	chunkSize := (n + numChunks - 1) / numChunks

	chunkSums := make([]int32, numChunks)
	var wg waitGroup
	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		chunk := c
		goSafe(func() {
			defer wg.Done()
			var sum int32
			for i := start; i < end; i++ {
				sum += in[i]
			}
			chunkSums[chunk] = sum
		})
	}
	wg.Wait()

	chunkOffsets := make([]int32, numChunks)
	var running int32
	for c := 0; c < numChunks; c++ {
		chunkOffsets[c] = running
		running += chunkSums[c]
	}

	for c := 0; c < numChunks; c++ {
		start := c * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		offset := chunkOffsets[c]
		cStart, cEnd := start, end
		goSafe(func() {
			defer wg.Done()
			sum := offset
			for i := cStart; i < cEnd; i++ {
				out[i] = sum
				sum += in[i]
			}
		})
	}
	wg.Wait()

	return out, running
}
