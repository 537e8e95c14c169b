package component

import (
	"fmt"
	"math"

	"github.com/san-kum/fmisim/internal/event"
	"github.com/san-kum/fmisim/internal/fmi"
)

// EventInfo is returned by UpdateDiscreteStates.
type EventInfo struct {
	Iterations           int
	Crossings            [][]fmi.Crossing
	Indicators           []float64
	TimeEvent            bool
	StatesChanged        bool
	Terminate            bool
	TerminateReason      string
	NextEventTime        float64
	NextEventTimeDefined bool
}

// Component is one model-exchange instance. It is owned by the host and
// must not be used from more than one goroutine at a time.
type Component struct {
	instance string
	model    fmi.Model
	desc     fmi.Description
	cb       fmi.Callbacks

	tracker  *fmi.Tracker
	eval     *event.Evaluator
	disp     *event.Dispatcher
	discrete *fmi.Discrete
	initial  map[string]float64

	time      float64
	x         fmi.State
	accepted  []float64
	pending   []float64
	timeEvent bool

	nextEvent    float64
	hasNextEvent bool
	episodes     int

	terminate       bool
	terminateReason string
}

// New instantiates model under the given instance name.
func New(model fmi.Model, instance string, opts ...Option) (*Component, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	desc := model.Describe()
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	discrete := fmi.NewDiscrete(desc.Discrete)
	for name, v := range cfg.discrete {
		if err := discrete.Set(name, v); err != nil {
			return nil, fmt.Errorf("instantiate %s: %w", instance, err)
		}
	}

	eval := event.NewEvaluator(model, desc.NumIndicators)
	disp, err := event.NewDispatcher(eval, model, cfg.maxIterations)
	if err != nil {
		return nil, err
	}

	c := &Component{
		instance: instance,
		model:    model,
		desc:     desc,
		cb:       cfg.callbacks,
		tracker:  fmi.NewTracker(),
		eval:     eval,
		disp:     disp,
		discrete: discrete,
		initial:  discrete.Snapshot(),
		x:        desc.Start.Clone(),
	}
	c.disp.Reset()
	c.log(fmi.StatusOK, fmi.LogModes, "instantiated model %s (%d states, %d indicators)", desc.Name, desc.NumStates, desc.NumIndicators)
	return c, nil
}

func (c *Component) Instance() string             { return c.instance }
func (c *Component) Description() fmi.Description { return c.desc }
func (c *Component) Mode() fmi.Mode               { return c.tracker.Mode() }
func (c *Component) Phase() event.Phase           { return c.disp.Phase() }
func (c *Component) Time() float64                { return c.time }
func (c *Component) NumIndicators() int           { return c.desc.NumIndicators }
func (c *Component) Discrete() fmi.DiscreteView   { return c.discrete }
func (c *Component) Episodes() int                { return c.episodes }

// DiscreteSnapshot copies the current discrete variables.
func (c *Component) DiscreteSnapshot() map[string]float64 { return c.discrete.Snapshot() }

func (c *Component) NextTimeEvent() (float64, bool) { return c.nextEvent, c.hasNextEvent }

// TerminateRequested reports whether the model asked to stop, either in
// the initial event iteration or in a later episode.
func (c *Component) TerminateRequested() (string, bool) { return c.terminateReason, c.terminate }

func (c *Component) log(sev fmi.Status, category, format string, args ...any) {
	c.cb.Log(sev, category, c.instance, fmt.Sprintf(format, args...))
}

func (c *Component) fail(op string, err error) error {
	sev := fmi.StatusOf(err)
	c.log(sev, fmi.LogStatusError, "%s: %v", op, err)
	return &fmi.CallError{Op: op, Instance: c.instance, Mode: c.tracker.Mode(), Time: c.time, Wrapped: err}
}

func (c *Component) require(op string, allowed ...fmi.Mode) error {
	if err := c.tracker.Require(op, allowed...); err != nil {
		return c.fail(op, err)
	}
	return nil
}

func (c *Component) transition(op string, to fmi.Mode) error {
	from := c.tracker.Mode()
	if err := c.tracker.Transition(to); err != nil {
		return c.fail(op, err)
	}
	c.discrete.SetWritable(to.DiscreteWritable())
	c.log(fmi.StatusOK, fmi.LogModes, "%s -> %s at t=%g", from, to, c.time)
	return nil
}

func (c *Component) current() fmi.ContinuousState {
	return fmi.ContinuousState{Time: c.time, X: c.x}
}

func (c *Component) EnterInitializationMode() error {
	return c.transition("EnterInitializationMode", fmi.InitializationMode)
}

// ExitInitializationMode runs the initial event iteration so the discrete
// variables agree with the start indicators, then enters continuous time.
func (c *Component) ExitInitializationMode() error {
	const op = "ExitInitializationMode"
	if err := c.require(op, fmi.InitializationMode); err != nil {
		return err
	}

	z := c.eval.Vector(c.current(), c.discrete)
	ep, err := c.disp.Run(event.Trigger{State: c.current(), Previous: z, Current: z, Initial: true}, c.discrete)
	if err != nil {
		return c.fail(op, err)
	}
	if ep.StatesChanged {
		c.x = ep.State.Clone()
	}
	c.accepted = ep.Indicators
	c.pending = nil
	c.scheduleTimeEvent()

	if ep.Terminate {
		c.terminate, c.terminateReason = true, ep.TerminateReason
		c.log(fmi.StatusWarning, fmi.LogEvents, "model requested termination during initialization: %s", ep.TerminateReason)
	}
	return c.transition(op, fmi.ContinuousTimeMode)
}

// SetReal writes a discrete variable or parameter. It fails with a mode
// sequence violation during continuous integration.
func (c *Component) SetReal(name string, v float64) error {
	const op = "SetReal"
	if err := c.require(op, fmi.Instantiated, fmi.InitializationMode, fmi.EventMode); err != nil {
		return err
	}
	if err := c.discrete.Set(name, v); err != nil {
		return c.fail(op, err)
	}
	return nil
}

func (c *Component) SetBoolean(name string, b bool) error {
	v := 0.0
	if b {
		v = 1
	}
	return c.SetReal(name, v)
}

func (c *Component) SetTime(t float64) error {
	const op = "SetTime"
	if err := c.require(op, fmi.InitializationMode, fmi.ContinuousTimeMode, fmi.EventMode); err != nil {
		return err
	}
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return c.fail(op, fmt.Errorf("%w: time %v", fmi.ErrInvalidState, t))
	}
	c.time = t
	return nil
}

func (c *Component) SetContinuousStates(x []float64) error {
	const op = "SetContinuousStates"
	if err := c.require(op, fmi.InitializationMode, fmi.ContinuousTimeMode, fmi.EventMode); err != nil {
		return err
	}
	if len(x) != c.desc.NumStates {
		return c.fail(op, fmt.Errorf("%w: got %d states, model has %d", fmi.ErrInvalidLength, len(x), c.desc.NumStates))
	}
	if !fmi.State(x).IsValid() {
		return c.fail(op, fmi.ErrInvalidState)
	}
	copy(c.x, x)
	return nil
}

func (c *Component) ContinuousStates(out []float64) error {
	if len(out) != c.desc.NumStates {
		return c.fail("ContinuousStates", fmt.Errorf("%w: got %d, model has %d", fmi.ErrInvalidLength, len(out), c.desc.NumStates))
	}
	copy(out, c.x)
	return nil
}

// States returns a copy of the continuous states.
func (c *Component) States() fmi.State { return c.x.Clone() }

func (c *Component) Derivatives(out []float64) error {
	return c.DerivativesAt(c.time, c.x, out)
}

// DerivativesAt evaluates the right-hand side at (t, x) without touching
// the component state. Integrators use it for intermediate stages.
func (c *Component) DerivativesAt(t float64, x, out []float64) error {
	const op = "Derivatives"
	if len(x) != c.desc.NumStates || len(out) != c.desc.NumStates {
		return c.fail(op, fmt.Errorf("%w: state %d, buffer %d, model has %d", fmi.ErrInvalidLength, len(x), len(out), c.desc.NumStates))
	}
	c.model.Derivatives(t, x, c.discrete, out)
	return nil
}

// GetEventIndicators writes the current indicators into out. The length
// is checked first, so a mismatched buffer is never written.
func (c *Component) GetEventIndicators(out []float64) error {
	if err := c.eval.Evaluate(c.current(), c.discrete, out); err != nil {
		return c.fail("GetEventIndicators", err)
	}
	return nil
}

// IndicatorsAt evaluates the indicators at a trial point without touching
// the component state. Used for zero-crossing localization.
func (c *Component) IndicatorsAt(t float64, x, out []float64) error {
	const op = "IndicatorsAt"
	if len(x) != c.desc.NumStates {
		return c.fail(op, fmt.Errorf("%w: got %d states, model has %d", fmi.ErrInvalidLength, len(x), c.desc.NumStates))
	}
	if err := c.eval.Evaluate(fmi.ContinuousState{Time: t, X: x}, c.discrete, out); err != nil {
		return c.fail(op, err)
	}
	return nil
}

// Accepted returns the indicator vector of the last accepted point.
func (c *Component) Accepted() []float64 {
	return append([]float64(nil), c.accepted...)
}

// CompletedIntegratorStep compares the indicators at the current point
// with the last accepted ones. It reports whether event mode is needed
// because of a sign change or a reached time event.
func (c *Component) CompletedIntegratorStep() (bool, error) {
	const op = "CompletedIntegratorStep"
	if err := c.require(op, fmi.ContinuousTimeMode); err != nil {
		return false, err
	}

	z := c.eval.Vector(c.current(), c.discrete)
	crossings := event.Crossings(c.accepted, z)
	timeEvent := c.timeEventReached()

	if c.cb.StepFinished != nil {
		c.cb.StepFinished(c.instance, fmi.StatusOK)
	}

	if len(crossings) == 0 && !timeEvent {
		c.accepted = z
		return false, nil
	}

	c.pending = z
	c.timeEvent = timeEvent
	if len(crossings) > 0 {
		c.log(fmi.StatusOK, fmi.LogEvents, "state event at t=%g: %v", c.time, crossings)
	}
	if timeEvent {
		c.log(fmi.StatusOK, fmi.LogEvents, "time event at t=%g", c.time)
	}
	return true, nil
}

// EnterEventMode is legal from continuous time and, for another
// iteration round, from event mode itself. From any other mode it fails
// without changing anything.
func (c *Component) EnterEventMode() error {
	const op = "EnterEventMode"
	if err := c.require(op, fmi.ContinuousTimeMode, fmi.EventMode); err != nil {
		return err
	}

	if c.tracker.Mode() == fmi.EventMode {
		c.pending = c.eval.Vector(c.current(), c.discrete)
		c.disp.Reset()
		return c.transition(op, fmi.EventMode)
	}

	if c.pending == nil {
		c.pending = c.eval.Vector(c.current(), c.discrete)
		c.timeEvent = c.timeEventReached()
	}
	c.disp.Reset()
	return c.transition(op, fmi.EventMode)
}

// UpdateDiscreteStates runs the event iteration for the current episode.
// A non-convergent chain is returned to the caller and not retried.
func (c *Component) UpdateDiscreteStates() (EventInfo, error) {
	const op = "UpdateDiscreteStates"
	if err := c.require(op, fmi.EventMode); err != nil {
		return EventInfo{}, err
	}

	ep, err := c.disp.Run(event.Trigger{
		State:     c.current(),
		Previous:  c.accepted,
		Current:   c.pending,
		TimeEvent: c.timeEvent,
	}, c.discrete)
	if err != nil {
		return EventInfo{}, c.fail(op, err)
	}

	if ep.StatesChanged {
		c.x = ep.State.Clone()
	}
	timeEvent := c.timeEvent
	c.accepted = ep.Indicators
	c.pending = ep.Indicators
	c.timeEvent = false
	c.episodes++
	c.scheduleTimeEvent()

	c.log(fmi.StatusOK, fmi.LogEvents, "event iteration converged at t=%g after %d iteration(s)", c.time, ep.Iterations)
	if ep.Terminate {
		c.terminate, c.terminateReason = true, ep.TerminateReason
		c.log(fmi.StatusOK, fmi.LogEvents, "model requested termination: %s", ep.TerminateReason)
	}

	return EventInfo{
		Iterations:           ep.Iterations,
		Crossings:            ep.Crossings,
		Indicators:           append([]float64(nil), ep.Indicators...),
		TimeEvent:            timeEvent,
		StatesChanged:        ep.StatesChanged,
		Terminate:            ep.Terminate,
		TerminateReason:      ep.TerminateReason,
		NextEventTime:        c.nextEvent,
		NextEventTimeDefined: c.hasNextEvent,
	}, nil
}

// LeaveEventMode returns to continuous time once the event iteration of
// the current episode has converged.
func (c *Component) LeaveEventMode() error {
	const op = "LeaveEventMode"
	if err := c.require(op, fmi.EventMode); err != nil {
		return err
	}
	if c.disp.Phase() != event.Converged {
		return c.fail(op, fmt.Errorf("%w: event iteration is %s, not converged", fmi.ErrModeSequence, c.disp.Phase()))
	}
	c.pending = nil
	return c.transition(op, fmi.ContinuousTimeMode)
}

func (c *Component) Terminate() error {
	return c.transition("Terminate", fmi.Terminated)
}

// Reset returns the instance to the instantiated state with its start
// values.
func (c *Component) Reset() error {
	c.tracker.Reset()
	c.discrete.Restore(c.initial)
	c.discrete.SetWritable(true)
	c.x = c.desc.Start.Clone()
	c.time = 0
	c.accepted = nil
	c.pending = nil
	c.timeEvent = false
	c.hasNextEvent = false
	c.episodes = 0
	c.terminate, c.terminateReason = false, ""
	c.disp.Reset()
	c.log(fmi.StatusOK, fmi.LogModes, "reset")
	return nil
}

func (c *Component) scheduleTimeEvent() {
	c.hasNextEvent = false
	te, ok := c.model.(fmi.TimeEventer)
	if !ok {
		return
	}
	c.nextEvent, c.hasNextEvent = te.NextTimeEvent(c.time, c.discrete)
}

func (c *Component) timeEventReached() bool {
	if !c.hasNextEvent {
		return false
	}
	tol := 1e-12 * math.Max(1, math.Abs(c.nextEvent))
	return c.time >= c.nextEvent-tol
}
