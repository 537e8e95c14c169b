package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fmisim/internal/component"
	"github.com/san-kum/fmisim/internal/event"
	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/integrators"
)

const (
	maxBisections = 64
	maxRejections = 32
)

// componentSystem exposes the component's right-hand side to an
// integrator. The discrete context stays frozen during a step.
type componentSystem struct {
	comp *component.Component
	err  error
}

func (s *componentSystem) Derive(x fmi.State, t float64) fmi.State {
	dx := make(fmi.State, len(x))
	if err := s.comp.DerivativesAt(t, x, dx); err != nil && s.err == nil {
		s.err = err
	}
	return dx
}

// Master is the model-exchange master algorithm: it integrates the
// continuous states and drives the component through its events.
type Master struct {
	comp       *component.Component
	integrator integrators.Integrator
	observers  []Observer

	cfg     Config
	sys     *componentSystem
	scratch *VectorPool
	dt      float64
	end     float64
	started bool
	done    bool
	result  *Result
	metrics []Metric
}

func New(comp *component.Component, integrator integrators.Integrator) *Master {
	return &Master{
		comp:       comp,
		integrator: integrator,
		observers:  make([]Observer, 0),
		sys:        &componentSystem{comp: comp},
		scratch:    NewVectorPool(comp.NumIndicators()),
	}
}

func (m *Master) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// AddMetric registers a metric; its value is stored in Result.Metrics
// when the run finishes.
func (m *Master) AddMetric(metric Metric) {
	m.metrics = append(m.metrics, metric)
	m.AddObserver(metric)
}

func (m *Master) Component() *component.Component { return m.comp }
func (m *Master) Result() *Result                 { return m.result }
func (m *Master) Done() bool                      { return m.done }

func (m *Master) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	if cfg.LocateEvents && cfg.EventTolerance <= 0 {
		return fmt.Errorf("event tolerance must be positive when locating events")
	}
	return nil
}

// Start initializes the component and records the initial sample.
func (m *Master) Start(cfg Config) error {
	if err := m.validateConfig(cfg); err != nil {
		return err
	}
	m.cfg = cfg
	m.dt = cfg.Dt
	m.end = m.comp.Time() + cfg.Duration

	if err := m.comp.EnterInitializationMode(); err != nil {
		return err
	}
	if err := m.comp.ExitInitializationMode(); err != nil {
		return err
	}

	desc := m.comp.Description()
	steps := int(cfg.Duration/cfg.Dt) + 1
	m.result = &Result{
		Model:      desc.Name,
		Instance:   m.comp.Instance(),
		StateNames: desc.StateNames,
		Times:      make([]float64, 0, steps),
		States:     make([]fmi.State, 0, steps),
		Indicators: make([][]float64, 0, steps),
		Events:     make([]EventRecord, 0),
	}
	for _, metric := range m.metrics {
		metric.Reset()
	}
	m.started = true
	m.done = false
	if err := m.sample(); err != nil {
		return err
	}
	if reason, ok := m.comp.TerminateRequested(); ok {
		if reason == "" {
			reason = "terminated during initialization"
		}
		m.finish(reason)
	}
	return nil
}

func (m *Master) sample() error {
	z := make([]float64, m.comp.NumIndicators())
	if err := m.comp.GetEventIndicators(z); err != nil {
		return err
	}
	t, x := m.comp.Time(), m.comp.States()
	m.result.Times = append(m.result.Times, t)
	m.result.States = append(m.result.States, x)
	m.result.Indicators = append(m.result.Indicators, z)
	for _, obs := range m.observers {
		obs.OnStep(t, x, z)
	}
	return nil
}

// Run integrates until the configured duration or a termination request.
func (m *Master) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := m.Start(cfg); err != nil {
		return nil, err
	}
	for !m.done {
		select {
		case <-ctx.Done():
			return m.result, ctx.Err()
		default:
		}
		if err := m.Step(); err != nil {
			return m.result, err
		}
	}
	return m.result, nil
}

// Step advances by one integrator step, handling any event at its end.
func (m *Master) Step() error {
	if !m.started {
		return ErrNotStarted
	}
	if m.done {
		return nil
	}

	t, x := m.comp.Time(), m.comp.States()
	h := math.Min(m.dt, m.end-t)
	if next, ok := m.comp.NextTimeEvent(); ok && next > t && next < t+h {
		h = next - t
	}

	xNew, h, err := m.advance(x, t, h)
	if err != nil {
		return m.stepError(t, err)
	}

	if m.cfg.LocateEvents && m.comp.NumIndicators() > 0 {
		h, xNew, err = m.locate(x, t, h, xNew)
		if err != nil {
			return m.stepError(t, err)
		}
	}

	if err := m.comp.SetTime(t + h); err != nil {
		return m.stepError(t, err)
	}
	if err := m.comp.SetContinuousStates(xNew); err != nil {
		return m.stepError(t, err)
	}

	enter, err := m.comp.CompletedIntegratorStep()
	if err != nil {
		return m.stepError(t+h, err)
	}
	if enter {
		if err := m.handleEvent(); err != nil {
			return m.stepError(t+h, err)
		}
	}

	m.result.StepsTaken++
	if err := m.sample(); err != nil {
		return m.stepError(t+h, err)
	}

	if !m.done && m.comp.Time() >= m.end-1e-12*math.Max(1, math.Abs(m.end)) {
		m.finish("")
	}
	return nil
}

func (m *Master) stepError(t float64, err error) error {
	return &StepError{Step: m.result.StepsTaken, Time: t, Wrapped: err}
}

// advance integrates one step starting at h and returns the step length
// actually taken. Adaptive steps whose error is too large are retried
// with the proposed smaller size until MinDt is reached.
func (m *Master) advance(x fmi.State, t, h float64) (fmi.State, float64, error) {
	m.sys.err = nil

	var xNew fmi.State
	if adaptive, ok := m.integrator.(integrators.AdaptiveIntegrator); ok && m.cfg.Adaptive {
		var dtNext float64
		var err error
		for attempt := 0; ; attempt++ {
			m.sys.err = nil
			xNew, dtNext, err = adaptive.StepAdaptive(m.sys, x, t, h, m.cfg.Tolerance)
			if !errors.Is(err, integrators.ErrStepRejected) {
				break
			}
			if h <= m.cfg.MinDt || attempt >= maxRejections {
				// accept at the floor rather than stall
				err = nil
				break
			}
			h = math.Max(dtNext, m.cfg.MinDt)
		}
		if err != nil {
			return nil, 0, err
		}
		m.dt = math.Max(m.cfg.MinDt, math.Min(dtNext, m.cfg.MaxDt))
	} else {
		xNew = m.integrator.Step(m.sys, x, t, h)
	}

	if m.sys.err != nil {
		return nil, 0, m.sys.err
	}
	if m.cfg.ValidateState && !xNew.IsValid() {
		return nil, 0, fmi.ErrInvalidState
	}
	return xNew, h, nil
}

// locate shrinks the step to the first indicator sign change by
// bisection. The returned point lies just past the crossing, so the
// component sees the sign change when the step completes.
func (m *Master) locate(x fmi.State, t, h float64, xEnd fmi.State) (float64, fmi.State, error) {
	accepted := m.comp.Accepted()
	z := m.scratch.Get()
	defer m.scratch.Put(z)

	if err := m.comp.IndicatorsAt(t+h, xEnd, z); err != nil {
		return 0, nil, err
	}
	if len(event.Crossings(accepted, z)) == 0 {
		return h, xEnd, nil
	}

	lo, hi, xHi := 0.0, h, xEnd
	for i := 0; i < maxBisections && hi-lo > m.cfg.EventTolerance; i++ {
		mid := 0.5 * (lo + hi)
		m.sys.err = nil
		xm := m.integrator.Step(m.sys, x, t, mid)
		if m.sys.err != nil {
			return 0, nil, m.sys.err
		}
		if err := m.comp.IndicatorsAt(t+mid, xm, z); err != nil {
			return 0, nil, err
		}
		if len(event.Crossings(accepted, z)) > 0 {
			hi, xHi = mid, xm
		} else {
			lo = mid
		}
	}
	return hi, xHi, nil
}

func (m *Master) handleEvent() error {
	if err := m.comp.EnterEventMode(); err != nil {
		return err
	}
	info, err := m.comp.UpdateDiscreteStates()
	if err != nil {
		return err
	}

	rec := EventRecord{
		Time:            m.comp.Time(),
		Iterations:      info.Iterations,
		Crossings:       info.Crossings,
		TimeEvent:       info.TimeEvent,
		StatesChanged:   info.StatesChanged,
		Discrete:        m.comp.DiscreteSnapshot(),
		Terminate:       info.Terminate,
		TerminateReason: info.TerminateReason,
	}
	m.result.Events = append(m.result.Events, rec)
	for _, obs := range m.observers {
		obs.OnEvent(rec)
	}

	if info.Terminate {
		m.finish(info.TerminateReason)
		return nil
	}
	if m.cfg.MaxEvents > 0 && len(m.result.Events) > m.cfg.MaxEvents {
		return fmt.Errorf("%w: %d events", ErrTooManyEvents, len(m.result.Events))
	}
	return m.comp.LeaveEventMode()
}

func (m *Master) finish(reason string) {
	m.done = true
	m.result.FinalDiscrete = m.comp.DiscreteSnapshot()
	m.result.Metrics = make(map[string]float64, len(m.metrics))
	for _, metric := range m.metrics {
		m.result.Metrics[metric.Name()] = metric.Value()
	}
	if reason != "" {
		m.result.Terminated = true
		m.result.TerminateReason = reason
	}
	_ = m.comp.Terminate()
}
