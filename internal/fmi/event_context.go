package fmi

// EventContext is handed to Model.Update for one iteration of an event
// episode. The state is borrowed from the host and must not be written;
// reinitialization goes through Reinit.
type EventContext struct {
	Time      float64
	State     State
	Crossings []Crossing
	TimeEvent bool
	Initial   bool
	Iteration int
	Discrete  *Discrete

	reinit    State
	terminate string
	stop      bool
}

func NewEventContext(t float64, x State, d *Discrete, crossings []Crossing, timeEvent bool, iteration int) *EventContext {
	return &EventContext{
		Time:      t,
		State:     x,
		Crossings: crossings,
		TimeEvent: timeEvent,
		Iteration: iteration,
		Discrete:  d,
	}
}

// Crossed returns the crossing reported for indicator i, if any.
func (e *EventContext) Crossed(i int) (Crossing, bool) {
	for _, c := range e.Crossings {
		if c.Index == i {
			return c, true
		}
	}
	return Crossing{}, false
}

// Reinit requests x[i] = v. The host state is copied on first use.
func (e *EventContext) Reinit(i int, v float64) {
	if e.reinit == nil {
		e.reinit = e.State.Clone()
	}
	e.reinit[i] = v
}

// Reinitialized returns the state after Reinit calls, or nil.
func (e *EventContext) Reinitialized() State { return e.reinit }

// Terminate asks the host to end the simulation after this episode.
func (e *EventContext) Terminate(reason string) {
	e.stop = true
	e.terminate = reason
}

func (e *EventContext) TerminateRequested() (string, bool) {
	return e.terminate, e.stop
}
