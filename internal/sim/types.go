package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/fmisim/internal/fmi"
)

var (
	// ErrTooManyEvents indicates a run that exceeded Config.MaxEvents,
	// usually a chattering model.
	ErrTooManyEvents = errors.New("sim: event limit exceeded")

	ErrNotStarted = errors.New("sim: master not started")
)

type Config struct {
	Dt       float64
	Duration float64
	// Adaptive enables error control on integrators that support it.
	// Rejected steps are retried smaller, down to MinDt.
	Adaptive       bool
	Tolerance      float64
	MinDt          float64
	MaxDt          float64
	LocateEvents   bool
	EventTolerance float64
	MaxEvents      int
	ValidateState  bool
}

func DefaultConfig() Config {
	return Config{
		Dt:             0.01,
		Duration:       10.0,
		Tolerance:      1e-6,
		MinDt:          1e-8,
		MaxDt:          0.1,
		LocateEvents:   true,
		EventTolerance: 1e-10,
		MaxEvents:      10000,
		ValidateState:  true,
	}
}

// EventRecord describes one event episode handled by the master.
type EventRecord struct {
	Time            float64
	Iterations      int
	Crossings       [][]fmi.Crossing
	TimeEvent       bool
	StatesChanged   bool
	Discrete        map[string]float64
	Terminate       bool
	TerminateReason string
}

// Triggers returns the crossings that opened the episode.
func (r EventRecord) Triggers() []fmi.Crossing {
	if len(r.Crossings) == 0 {
		return nil
	}
	return r.Crossings[0]
}

type Result struct {
	Model           string
	Instance        string
	StateNames      []string
	Times           []float64
	States          []fmi.State
	Indicators      [][]float64
	Events          []EventRecord
	StepsTaken      int
	Terminated      bool
	TerminateReason string
	FinalDiscrete   map[string]float64
	Metrics         map[string]float64
}

type Observer interface {
	OnStep(t float64, x fmi.State, z []float64)
	OnEvent(rec EventRecord)
}

// Metric accumulates a scalar over a run from the observer callbacks.
type Metric interface {
	Observer
	Name() string
	Value() float64
	Reset()
}

// StepError wraps a fatal error with the step it happened in.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
