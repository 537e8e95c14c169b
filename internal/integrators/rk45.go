package integrators

import (
	"errors"
	"math"

	"github.com/san-kum/fmisim/internal/fmi"
)

// ErrStepRejected is returned by StepAdaptive when the error estimate
// exceeds the tolerance. The returned size is the one to retry with.
var ErrStepRejected = errors.New("integrators: step rejected")

// Dormand-Prince 5(4). The seventh stage is evaluated at the fifth order
// solution (FSAL) and only enters the error estimate.
var dormandPrince = tableau{
	nodes: []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	coupling: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	weights: []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0},
}

// fifth order minus embedded fourth order weights
var dpError = [7]float64{
	35.0/384 - 5179.0/57600,
	0,
	500.0/1113 - 7571.0/16695,
	125.0/192 - 393.0/640,
	-2187.0/6784 + 92097.0/339200,
	11.0/84 - 187.0/2100,
	-1.0 / 40,
}

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

// Step takes one fifth-order step of exactly dt. Event location needs
// fixed-length trial steps, so no error control is applied.
func (r *RK45) Step(sys System, x fmi.State, t, dt float64) fmi.State {
	xNew, _ := dormandPrince.step(sys, x, t, dt)
	return xNew
}

// StepAdaptive takes a step of dt and proposes the next step size from
// the embedded error estimate. A step whose error exceeds tol comes back
// with ErrStepRejected and a smaller size to retry with.
func (r *RK45) StepAdaptive(sys System, x fmi.State, t, dt, tol float64) (fmi.State, float64, error) {
	xNew, k := dormandPrince.step(sys, x, t, dt)
	if !xNew.IsValid() {
		return xNew, dt, fmi.ErrInvalidState
	}

	errMax := 0.0
	for i := range x {
		est := 0.0
		for s, w := range dpError {
			est += w * k[s][i]
		}
		scale := math.Abs(x[i]) + math.Abs(dt*k[0][i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(dt*est)/scale)
	}

	ratio := errMax / tol
	switch {
	case ratio > 1:
		return xNew, dt * math.Max(r.minScale, r.safety*math.Pow(ratio, -0.25)), ErrStepRejected
	case ratio > 0:
		return xNew, dt * math.Min(r.maxScale, r.safety*math.Pow(ratio, -0.2)), nil
	default:
		return xNew, dt * r.maxScale, nil
	}
}
