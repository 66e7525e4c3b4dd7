package voxelhash

import (
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// numScanWorkers, numKernelWorkers size every goroutine fan-out in this
// package: one batch per available CPU, absent a more specific batch count.
var numScanWorkers = runtime.GOMAXPROCS(0)
var numKernelWorkers = runtime.GOMAXPROCS(0)

// waitGroup is a thin alias kept local to this package so scan.go and the
// pass files read the same way when spelling a fan-out barrier.
type waitGroup = sync.WaitGroup

// goSafe launches f on its own goroutine via utils.PanicCapturingGo: a
// panicking batch is logged and does not bring down the rest of the pass.
func goSafe(f func()) {
	utils.PanicCapturingGo(f)
}

// launchKernel divides [0,n) into numKernelWorkers batches and runs
// body(batchStart, batchEnd) for each batch on its own goroutine, returning
// only once every batch has completed. This is the barrier every pass uses
// between stages: nothing past the call to launchKernel observes a
// partially finished fan-out.
func launchKernel(n int, body func(start, end int)) {
	if n == 0 {
		return
	}
	workers := numKernelWorkers
	if workers > n {
		workers = n
	}
	batchSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * batchSize
		end := start + batchSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		s, e := start, end
		goSafe(func() {
			defer wg.Done()
			body(s, e)
		})
	}
	wg.Wait()
}
