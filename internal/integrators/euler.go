package integrators

import "github.com/san-kum/fmisim/internal/fmi"

var forwardEuler = tableau{
	nodes:    []float64{0},
	coupling: [][]float64{{}},
	weights:  []float64{1},
}

// Euler is first order. It gains energy on oscillating and bouncing
// trajectories, which can keep a damped ball bouncing forever.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys System, x fmi.State, t float64, dt float64) fmi.State {
	out, _ := forwardEuler.step(sys, x, t, dt)
	return out
}
