package event

import (
	"fmt"

	"github.com/san-kum/fmisim/internal/fmi"
)

// DefaultMaxIterations bounds one event episode. FMI masters expect a
// handful of iterations at most; a longer chain is treated as a modelling
// error rather than looped on.
const DefaultMaxIterations = 8

type Phase int

const (
	Idle Phase = iota
	Updating
	Evaluating
	Converged
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Updating:
		return "updating"
	case Evaluating:
		return "evaluating"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Trigger describes what opened an episode. Previous is the last accepted
// indicator vector, Current the vector at the trigger point.
type Trigger struct {
	State     fmi.ContinuousState
	Previous  []float64
	Current   []float64
	TimeEvent bool
	Initial   bool
}

// Episode is the outcome of one event iteration.
type Episode struct {
	Iterations      int
	Crossings       [][]fmi.Crossing
	Indicators      []float64
	State           fmi.State
	StatesChanged   bool
	Terminate       bool
	TerminateReason string
}

type Dispatcher struct {
	eval    *Evaluator
	model   fmi.Model
	maxIter int

	phase Phase
	trace []Phase
}

func NewDispatcher(eval *Evaluator, model fmi.Model, maxIter int) (*Dispatcher, error) {
	if maxIter < 1 {
		return nil, fmt.Errorf("event: max iterations must be at least 1, got %d", maxIter)
	}
	return &Dispatcher{eval: eval, model: model, maxIter: maxIter}, nil
}

func (d *Dispatcher) Phase() Phase       { return d.phase }
func (d *Dispatcher) MaxIterations() int { return d.maxIter }

// Trace returns the phases visited in the current episode, starting at Idle.
func (d *Dispatcher) Trace() []Phase {
	out := make([]Phase, len(d.trace))
	copy(out, d.trace)
	return out
}

// Reset returns the dispatcher to Idle for the next episode.
func (d *Dispatcher) Reset() {
	d.phase = Idle
	d.trace = append(d.trace[:0], Idle)
}

func (d *Dispatcher) enter(p Phase) {
	d.phase = p
	d.trace = append(d.trace, p)
}

// Run iterates discrete updates and indicator evaluations until no
// indicator changes sign across a full iteration. disc must be writable.
// Every call starts a fresh episode.
func (d *Dispatcher) Run(tr Trigger, disc *fmi.Discrete) (*Episode, error) {
	d.Reset()

	if len(tr.Previous) != d.eval.Len() || len(tr.Current) != d.eval.Len() {
		d.enter(Failed)
		return nil, fmt.Errorf("%w: trigger vectors have %d/%d entries, model has %d",
			fmi.ErrInvalidLength, len(tr.Previous), len(tr.Current), d.eval.Len())
	}

	snapshot := append([]float64(nil), tr.Current...)
	crossings := Crossings(tr.Previous, snapshot)
	x := tr.State.X
	ep := &Episode{State: x}

	for iter := 1; ; iter++ {
		d.enter(Updating)
		ev := fmi.NewEventContext(tr.State.Time, x, disc, crossings, tr.TimeEvent && iter == 1, iter)
		ev.Initial = tr.Initial && iter == 1
		if err := d.model.Update(ev); err != nil {
			d.enter(Failed)
			return ep, fmt.Errorf("event: discrete update in iteration %d: %w", iter, err)
		}
		ep.Iterations = iter
		ep.Crossings = append(ep.Crossings, crossings)

		if r := ev.Reinitialized(); r != nil {
			x = r
			ep.State = x
			ep.StatesChanged = true
		}

		d.enter(Evaluating)
		next := make([]float64, d.eval.Len())
		if err := d.eval.Evaluate(fmi.ContinuousState{Time: tr.State.Time, X: x}, disc, next); err != nil {
			d.enter(Failed)
			return ep, err
		}
		ep.Indicators = next

		if reason, stop := ev.TerminateRequested(); stop {
			ep.Terminate = true
			ep.TerminateReason = reason
			d.enter(Converged)
			return ep, nil
		}

		crossings = Crossings(snapshot, next)
		snapshot = next
		if len(crossings) == 0 {
			d.enter(Converged)
			return ep, nil
		}
		if iter >= d.maxIter {
			d.enter(Failed)
			return ep, fmt.Errorf("%w: still %d crossing(s) after %d iterations", fmi.ErrNonConvergent, len(crossings), iter)
		}
	}
}
