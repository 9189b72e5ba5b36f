package dynamo

import (
	"runtime"

	"github.com/dgravesa/go-parallel/parallel"
)

// ParallelFor calls fn for every index in [0, n). Work runs on up to
// workers goroutines (runtime.NumCPU when workers <= 0) and falls back to a
// plain loop when n is below minChunk or only one worker is available.
// fn must only write state owned by index i.
func ParallelFor(n, workers, minChunk int, fn func(i int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if n <= minChunk || workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	parallel.WithNumGoroutines(workers).For(n, func(i, _ int) {
		fn(i)
	})
}
