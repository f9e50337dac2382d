// Package optim tunes experiments by exhaustive search over a parameter
// grid.
package optim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"

	"github.com/go-logr/logr"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/experiment"
)

var ErrNoCandidate = errors.New("no grid point produced a finite metric")

// Builder returns a ready experiment for one grid point.
type Builder func(params map[string]float64) (*experiment.Experiment, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	Log        logr.Logger
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, Log: logr.Discard()}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs every grid point and returns the one minimising metricName.
// Points whose experiment fails or whose metric is not finite are skipped.
func (g *GridSearch) Search(ctx context.Context, build Builder, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, dynamo.Invalidf("%d parameter names for %d ranges", len(g.paramNames), len(g.ranges))
	}
	if g.Size() == 0 {
		return nil, 0, dynamo.Invalidf("empty search grid")
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoCandidate, metricName)
	}

	g.Log.V(1).Info("grid search finished", "points", g.Size(), "metric", metricName, "best", best, "params", bestParams)
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build Builder,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
	}

	if depth == len(g.paramNames) {
		exp, err := build(current)
		if err != nil {
			if errors.Is(err, dynamo.ErrInvalidConfiguration) {
				return err
			}
			g.Log.V(1).Info("skipping grid point", "params", current, "error", err.Error())
			return nil
		}

		result, err := exp.Run(ctx)
		if err != nil {
			if errors.Is(err, dynamo.ErrContextCanceled) {
				return err
			}
			g.Log.V(1).Info("grid point failed", "params", current, "error", err.Error())
			return nil
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return dynamo.Invalidf("run reports no metric %q", metricName)
		}
		if !math.IsNaN(val) && !math.IsInf(val, 0) && val < *best {
			*best = val
			*bestParams = maps.Clone(current)
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, metricName, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// ControllerGains builds experiments from base whose controller has the
// grid point's values applied through SetParam.
func ControllerGains(base *config.Config, opts ...experiment.Option) Builder {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		exp := experiment.New(base.Clone(), opts...)
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		ctrl, ok := exp.Loop().Controller.(dynamo.Configurable)
		if !ok {
			return nil, dynamo.Invalidf("controller %q has no tunable parameters", base.Controller.Type)
		}
		for name, v := range params {
			if err := ctrl.SetParam(name, v); err != nil {
				return nil, err
			}
		}
		return exp, nil
	}
}

// NominalParams builds experiments from base with the grid point's values
// as nominal plant parameters.
func NominalParams(base *config.Config, opts ...experiment.Option) Builder {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if cfg.Nominal == nil {
			cfg.Nominal = make(map[string]float64, len(params))
		}
		maps.Copy(cfg.Nominal, params)

		exp := experiment.New(cfg, opts...)
		if err := exp.Setup(); err != nil {
			return nil, err
		}
		return exp, nil
	}
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
