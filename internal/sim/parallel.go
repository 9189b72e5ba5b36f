package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/octgrav/internal/dynamo"
)

// RunFunc builds and runs one ensemble member for a seed. Each call must
// construct its own engine and integrator; neither is safe to share.
type RunFunc func(ctx context.Context, seed uint64) (*dynamo.Result, error)

// Ensemble runs the same experiment over consecutive seeds.
type Ensemble struct {
	run       RunFunc
	numRuns   int
	seedStart uint64
	limit     int
}

func NewEnsemble(run RunFunc, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{
		run:       run,
		numRuns:   numRuns,
		seedStart: seedStart,
		limit:     runtime.NumCPU(),
	}
}

// SetLimit bounds how many members run at once. n <= 0 removes the bound.
func (e *Ensemble) SetLimit(n int) { e.limit = n }

// Run returns results indexed by member. The first failure cancels the
// members still running and is returned.
func (e *Ensemble) Run(ctx context.Context) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for i := 0; i < e.numRuns; i++ {
		seed := e.seedStart + uint64(i)
		g.Go(func() error {
			res, err := e.run(ctx, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
