package models

import "github.com/san-kum/fmisim/internal/fmi"

// Thermostat keeps a room between t_low and t_high.
type Thermostat struct {
	t0     float64
	params map[string]float64
}

func NewThermostat(params map[string]float64) *Thermostat {
	return &Thermostat{
		t0: param(params, "t0", 20.0),
		params: map[string]float64{
			"t_low":    param(params, "t_low", 19.0),
			"t_high":   param(params, "t_high", 21.0),
			"ambient":  param(params, "ambient", 10.0),
			"k":        param(params, "k", 0.1),
			"power":    param(params, "power", 2.5),
			"heater":   0,
			"switches": 0,
		},
	}
}

func (m *Thermostat) Describe() fmi.Description {
	return fmi.Description{
		Name:          "thermostat",
		NumStates:     1,
		NumIndicators: 2,
		Start:         fmi.State{m.t0},
		Discrete:      m.params,
		StateNames:    []string{"T"},
	}
}

func (m *Thermostat) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0] = -d.Real("k")*(x[0]-d.Real("ambient")) + d.Real("heater")*d.Real("power")
}

func (m *Thermostat) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = x[0] - d.Real("t_low")
	z[1] = x[0] - d.Real("t_high")
}

func (m *Thermostat) Update(ev *fmi.EventContext) error {
	d := ev.Discrete
	on := d.Bool("heater")

	switch {
	case ev.Initial:
		on = ev.State[0] < d.Real("t_low")
	default:
		if c, ok := ev.Crossed(0); ok && c.Direction == fmi.Falling {
			on = true
		}
		if c, ok := ev.Crossed(1); ok && c.Direction == fmi.Rising {
			on = false
		}
	}

	if on == d.Bool("heater") {
		return nil
	}
	if err := d.SetInt("switches", d.Int("switches")+1); err != nil {
		return err
	}
	return d.SetBool("heater", on)
}
