package fmi

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// ContinuousState is the integrator-owned part of a component: time and
// the continuous state vector.
type ContinuousState struct {
	Time float64
	X    State
}

// Description is the model metadata a component is instantiated from.
// NumIndicators is fixed for the lifetime of every instance.
type Description struct {
	Name          string
	NumStates     int
	NumIndicators int
	Start         State
	Discrete      map[string]float64
	StateNames    []string
}

func (d Description) Validate() error {
	if d.NumStates < 0 || d.NumIndicators < 0 {
		return fmt.Errorf("model %s: negative dimension", d.Name)
	}
	if len(d.Start) != d.NumStates {
		return fmt.Errorf("model %s: %w: start has %d values, want %d", d.Name, ErrInvalidLength, len(d.Start), d.NumStates)
	}
	if len(d.StateNames) != 0 && len(d.StateNames) != d.NumStates {
		return fmt.Errorf("model %s: %w: %d state names for %d states", d.Name, ErrInvalidLength, len(d.StateNames), d.NumStates)
	}
	return nil
}

// Model supplies the equations of one model. Derivatives and Indicators
// must be pure functions of their arguments; Update is the only place
// discrete variables change.
type Model interface {
	Describe() Description
	Derivatives(t float64, x State, d DiscreteView, dx State)
	Indicators(t float64, x State, d DiscreteView, z []float64)
	Update(ev *EventContext) error
}

// TimeEventer is implemented by models with scheduled time events.
type TimeEventer interface {
	NextTimeEvent(t float64, d DiscreteView) (float64, bool)
}

type Direction int

const (
	Falling Direction = -1
	Rising  Direction = 1
)

func (d Direction) String() string {
	if d == Rising {
		return "rising"
	}
	return "falling"
}

// Crossing is a sign change of one event indicator.
type Crossing struct {
	Index     int
	Direction Direction
}

func (c Crossing) String() string {
	return fmt.Sprintf("z%d %s", c.Index, c.Direction)
}
