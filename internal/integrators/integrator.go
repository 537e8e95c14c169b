package integrators

import (
	"fmt"

	"github.com/san-kum/fmisim/internal/fmi"
)

// System is the right-hand side dx/dt = f(x, t) seen by an integrator.
// Discrete variables are frozen for the duration of a step.
type System interface {
	Derive(x fmi.State, t float64) fmi.State
}

type Integrator interface {
	Step(sys System, x fmi.State, t float64, dt float64) fmi.State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x fmi.State, t, dt, tol float64) (fmi.State, float64, error)
}

// New returns the integrator registered under name.
func New(name string) (Integrator, error) {
	switch name {
	case "euler":
		return NewEuler(), nil
	case "rk4":
		return NewRK4(), nil
	case "rk45":
		return NewRK45(), nil
	}
	return nil, fmt.Errorf("unknown integrator: %s", name)
}

func Names() []string {
	return []string{"euler", "rk4", "rk45"}
}
