package sim

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Ensemble runs independent loops, one per seed, concurrently. Build must
// return a loop whose plant owns its own random source.
type Ensemble struct {
	Build       func(seed uint64) (*Loop, error)
	Runs        int
	SeedStart   uint64
	Parallelism int
	Log         logr.Logger
}

// Run returns one result per seed, in seed order. The first failing run
// cancels the others; results of runs that completed are still returned.
func (e *Ensemble) Run(ctx context.Context, duration float64) ([]*Result, error) {
	if e.Build == nil {
		return nil, dynamo.Invalidf("ensemble has no builder")
	}
	if e.Runs <= 0 {
		return nil, dynamo.Invalidf("ensemble needs at least one run, got %d", e.Runs)
	}

	results := make([]*Result, e.Runs)

	g, ctx := errgroup.WithContext(ctx)
	if e.Parallelism > 0 {
		g.SetLimit(e.Parallelism)
	}

	for i := 0; i < e.Runs; i++ {
		seed := e.SeedStart + uint64(i)
		g.Go(func() error {
			loop, err := e.Build(seed)
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, seed, err)
			}
			res, err := loop.Run(ctx, duration)
			results[i] = res
			if err != nil {
				return fmt.Errorf("run %d (seed %d): %w", i, seed, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		e.Log.Error(err, "ensemble failed", "runs", e.Runs)
	} else {
		e.Log.V(1).Info("ensemble finished", "runs", e.Runs, "seedStart", e.SeedStart)
	}
	return results, err
}
