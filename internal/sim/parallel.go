package sim

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Factory builds the master for run idx. Every run gets its own
// component, so no instance state is shared between goroutines.
type Factory func(idx int) (*Master, error)

type Ensemble struct {
	factory Factory
	numRuns int
	limit   int
}

func NewEnsemble(factory Factory, numRuns int) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, limit: runtime.GOMAXPROCS(0)}
}

// SetLimit caps the number of runs in flight. n <= 0 removes the cap.
func (e *Ensemble) SetLimit(n int) *Ensemble {
	e.limit = n
	return e
}

// Run executes every run and joins their errors. A failing run does not
// cancel the others; results of failed runs may be partial or nil.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			m, err := e.factory(idx)
			if err != nil {
				errs[idx] = fmt.Errorf("run %d: %w", idx, err)
				return nil
			}
			results[idx], err = m.Run(ctx, cfg)
			if err != nil {
				errs[idx] = fmt.Errorf("run %d: %w", idx, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(errs...); err != nil {
		return results, err
	}
	return results, nil
}
