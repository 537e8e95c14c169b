package integrators

import "github.com/san-kum/fmisim/internal/fmi"

var classicRK4 = tableau{
	nodes: []float64{0, 0.5, 0.5, 1},
	coupling: [][]float64{
		{},
		{0.5},
		{0, 0.5},
		{0, 0, 1},
	},
	weights: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
}

// RK4 is the classic fourth order scheme. It is exact for the piecewise
// quadratic trajectories of constant-acceleration models.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys System, x fmi.State, t, dt float64) fmi.State {
	out, _ := classicRK4.step(sys, x, t, dt)
	return out
}
