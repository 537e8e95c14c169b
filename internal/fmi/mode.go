package fmi

import "fmt"

type Mode int

const (
	Instantiated Mode = iota
	InitializationMode
	ContinuousTimeMode
	EventMode
	Terminated
)

var modeNames = [...]string{
	Instantiated:       "instantiated",
	InitializationMode: "initialization",
	ContinuousTimeMode: "continuous-time",
	EventMode:          "event",
	Terminated:         "terminated",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// DiscreteWritable reports whether discrete variables may change in m.
func (m Mode) DiscreteWritable() bool {
	switch m {
	case Instantiated, InitializationMode, EventMode:
		return true
	}
	return false
}

// transitions lists the legal targets for every mode. Reset is handled
// separately since it is legal from everywhere.
var transitions = map[Mode][]Mode{
	Instantiated:       {InitializationMode},
	InitializationMode: {ContinuousTimeMode, Terminated},
	ContinuousTimeMode: {EventMode, Terminated},
	EventMode:          {EventMode, ContinuousTimeMode, Terminated},
	Terminated:         {},
}

// CanTransition reports whether the lifecycle graph has an edge from -> to.
func CanTransition(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// Tracker holds the current mode of one component instance.
type Tracker struct {
	mode    Mode
	history []Mode
}

func NewTracker() *Tracker {
	return &Tracker{mode: Instantiated}
}

func (t *Tracker) Mode() Mode { return t.mode }

// Transition moves to the requested mode. An illegal request returns
// ErrModeSequence and leaves the tracker untouched.
func (t *Tracker) Transition(to Mode) error {
	if !CanTransition(t.mode, to) {
		return fmt.Errorf("%w: %s -> %s", ErrModeSequence, t.mode, to)
	}
	t.history = append(t.history, t.mode)
	t.mode = to
	return nil
}

// Require returns ErrModeSequence unless the current mode is one of allowed.
func (t *Tracker) Require(op string, allowed ...Mode) error {
	for _, m := range allowed {
		if t.mode == m {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not allowed in %s mode", ErrModeSequence, op, t.mode)
}

func (t *Tracker) Reset() {
	t.mode = Instantiated
	t.history = t.history[:0]
}

// History returns the modes left so far, oldest first.
func (t *Tracker) History() []Mode {
	out := make([]Mode, len(t.history))
	copy(out, t.history)
	return out
}
