package optim

import (
	"context"
	"errors"
	"math"
)

// ErrNoCandidate is returned when no grid point meets the error budget.
var ErrNoCandidate = errors.New("optim: no parameters within error budget")

// Evaluation is what an objective reports for one parameter set: a cost to
// minimize, typically wall time, and the error it buys.
type Evaluation struct {
	Cost  float64
	Error float64
}

type Objective func(ctx context.Context, params map[string]float64) (Evaluation, error)

// GridSearch tries every combination of parameter values and keeps the
// cheapest one whose error stays within budget.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

func (g *GridSearch) Search(ctx context.Context, objective Objective, maxError float64) (map[string]float64, Evaluation, error) {
	best := Evaluation{Cost: math.Inf(1)}
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, maxError, &best, &bestParams)
	if err != nil {
		return nil, Evaluation{}, err
	}
	if bestParams == nil {
		return nil, Evaluation{}, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	objective Objective,
	maxError float64,
	best *Evaluation,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		eval, err := objective(ctx, current)
		if err != nil {
			return err
		}

		if eval.Error <= maxError && eval.Cost < best.Cost {
			*best = eval
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, objective, maxError, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
