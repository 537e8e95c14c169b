package event

import (
	"fmt"

	"github.com/san-kum/fmisim/internal/fmi"
)

// Evaluator computes the event indicator vector of one model. It holds no
// mutable state, so the same evaluator serves continuous-time crossing
// detection and event-mode convergence checks.
type Evaluator struct {
	model fmi.Model
	ni    int
}

func NewEvaluator(model fmi.Model, ni int) *Evaluator {
	return &Evaluator{model: model, ni: ni}
}

// Len returns the fixed indicator count.
func (e *Evaluator) Len() int { return e.ni }

// Evaluate writes the indicators for s into out. A buffer of the wrong
// length is rejected before anything is written.
func (e *Evaluator) Evaluate(s fmi.ContinuousState, d fmi.DiscreteView, out []float64) error {
	if len(out) != e.ni {
		return fmt.Errorf("%w: indicator buffer has %d entries, model has %d", fmi.ErrInvalidLength, len(out), e.ni)
	}
	if e.ni == 0 {
		return nil
	}
	e.model.Indicators(s.Time, s.X, d, out)
	return nil
}

// Vector evaluates into a freshly allocated slice.
func (e *Evaluator) Vector(s fmi.ContinuousState, d fmi.DiscreteView) []float64 {
	z := make([]float64, e.ni)
	e.model.Indicators(s.Time, s.X, d, z)
	return z
}
