// Package optim searches model parameters for the best run metric.
package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/fmisim/internal/experiment"
)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	maximize   bool
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("grid search: %d params but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("grid search: no values for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Maximize makes the search prefer larger metric values.
func (g *GridSearch) Maximize() *GridSearch {
	g.maximize = true
	return g
}

// Points enumerates the full grid in row-major order.
func (g *GridSearch) Points() []map[string]float64 {
	points := []map[string]float64{{}}
	for depth, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(points)*len(g.ranges[depth]))
		for _, p := range points {
			for _, val := range g.ranges[depth] {
				point := make(map[string]float64, len(p)+1)
				for k, v := range p {
					point[k] = v
				}
				point[name] = val
				next = append(next, point)
			}
		}
		points = next
	}
	return points
}

type Evaluation struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs every grid point concurrently and returns the best point by
// metricName along with all evaluations. Failed runs are skipped. On a
// tie the earliest point in grid order wins.
func (g *GridSearch) Search(ctx context.Context, exp *experiment.Experiment, metricName string) (map[string]float64, float64, []Evaluation, error) {
	points := g.Points()
	results, runErr := exp.Sweep(ctx, points)
	if ctx.Err() != nil {
		return nil, 0, nil, ctx.Err()
	}

	evals := make([]Evaluation, len(points))
	for i, r := range results {
		evals[i].Params = points[i]
		if r == nil || r.Metrics == nil {
			evals[i].Err = fmt.Errorf("grid point %d failed", i)
			continue
		}
		val, ok := r.Metrics[metricName]
		if !ok {
			return nil, 0, nil, fmt.Errorf("unknown metric: %s", metricName)
		}
		evals[i].Value = val
	}

	idx := g.best(evals)
	if idx < 0 {
		if runErr != nil {
			return nil, 0, evals, runErr
		}
		return nil, 0, evals, fmt.Errorf("grid search: no successful runs")
	}
	return evals[idx].Params, evals[idx].Value, evals, nil
}

// best returns the index of the best successful evaluation, or -1. Only
// a strictly better value replaces the current best.
func (g *GridSearch) best(evals []Evaluation) int {
	idx := -1
	top := math.Inf(1)
	if g.maximize {
		top = math.Inf(-1)
	}
	for i, ev := range evals {
		if ev.Err != nil {
			continue
		}
		if (g.maximize && ev.Value > top) || (!g.maximize && ev.Value < top) {
			idx, top = i, ev.Value
		}
	}
	return idx
}
