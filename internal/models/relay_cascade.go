package models

import "github.com/san-kum/fmisim/internal/fmi"

// RelayCascade drains x at a constant rate. Relay A closes when x falls
// below the threshold; closing A drives the second indicator negative,
// which closes relay B within the same event.
type RelayCascade struct {
	x0     float64
	params map[string]float64
}

func NewRelayCascade(params map[string]float64) *RelayCascade {
	return &RelayCascade{
		x0: param(params, "x0", 1.0),
		params: map[string]float64{
			"threshold": param(params, "threshold", 0.5),
			"rate":      param(params, "rate", 1.0),
			"relay_a":   0,
			"relay_b":   0,
		},
	}
}

func (m *RelayCascade) Describe() fmi.Description {
	return fmi.Description{
		Name:          "relay_cascade",
		NumStates:     1,
		NumIndicators: 2,
		Start:         fmi.State{m.x0},
		Discrete:      m.params,
		StateNames:    []string{"x"},
	}
}

func (m *RelayCascade) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0] = -d.Real("rate")
}

func (m *RelayCascade) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = x[0] - d.Real("threshold")
	z[1] = 1
	if d.Bool("relay_a") {
		z[1] = -1
	}
}

func (m *RelayCascade) Update(ev *fmi.EventContext) error {
	if c, ok := ev.Crossed(0); ok && c.Direction == fmi.Falling {
		if err := ev.Discrete.SetBool("relay_a", true); err != nil {
			return err
		}
	}
	if c, ok := ev.Crossed(1); ok && c.Direction == fmi.Falling {
		return ev.Discrete.SetBool("relay_b", true)
	}
	return nil
}
