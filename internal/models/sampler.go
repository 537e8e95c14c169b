package models

import (
	"math"

	"github.com/san-kum/fmisim/internal/fmi"
)

// Sampler increments a counter on a fixed period and integrates it. The
// simulation terminates once the integral reaches limit.
type Sampler struct {
	params map[string]float64
}

func NewSampler(params map[string]float64) *Sampler {
	return &Sampler{
		params: map[string]float64{
			"period":  param(params, "period", 0.5),
			"gain":    param(params, "gain", 1.0),
			"limit":   param(params, "limit", 10.0),
			"counter": 0,
		},
	}
}

func (m *Sampler) Describe() fmi.Description {
	return fmi.Description{
		Name:          "sampler",
		NumStates:     1,
		NumIndicators: 1,
		Start:         fmi.State{0},
		Discrete:      m.params,
		StateNames:    []string{"y"},
	}
}

func (m *Sampler) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0] = d.Real("gain") * d.Real("counter")
}

func (m *Sampler) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = x[0] - d.Real("limit")
}

func (m *Sampler) Update(ev *fmi.EventContext) error {
	if c, ok := ev.Crossed(0); ok && c.Direction == fmi.Rising {
		ev.Terminate("limit reached")
		return nil
	}
	if ev.TimeEvent {
		return ev.Discrete.SetInt("counter", ev.Discrete.Int("counter")+1)
	}
	return nil
}

func (m *Sampler) NextTimeEvent(t float64, d fmi.DiscreteView) (float64, bool) {
	period := d.Real("period")
	if period <= 0 {
		return 0, false
	}
	n := math.Floor(t/period + 1e-9)
	return (n + 1) * period, true
}
