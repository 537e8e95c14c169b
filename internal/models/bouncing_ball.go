package models

import (
	"math"

	"github.com/san-kum/fmisim/internal/fmi"
)

type BouncingBall struct {
	h0, v0 float64
	params map[string]float64
}

func NewBouncingBall(params map[string]float64) *BouncingBall {
	return &BouncingBall{
		h0: param(params, "h0", 1.0),
		v0: param(params, "v0", 0.0),
		params: map[string]float64{
			"g":       param(params, "g", 9.81),
			"e":       param(params, "e", 0.8),
			"v_min":   param(params, "v_min", 0.1),
			"bounces": 0,
		},
	}
}

func (b *BouncingBall) Describe() fmi.Description {
	return fmi.Description{
		Name:          "bouncing_ball",
		NumStates:     2,
		NumIndicators: 1,
		Start:         fmi.State{b.h0, b.v0},
		Discrete:      b.params,
		StateNames:    []string{"h", "v"},
	}
}

func (b *BouncingBall) Derivatives(t float64, x fmi.State, d fmi.DiscreteView, dx fmi.State) {
	dx[0] = x[1]
	dx[1] = -d.Real("g")
}

func (b *BouncingBall) Indicators(t float64, x fmi.State, d fmi.DiscreteView, z []float64) {
	z[0] = x[0]
}

// Update reflects the ball on impact. The height is mirrored above the
// floor so the indicator settles on the positive side in the same episode.
func (b *BouncingBall) Update(ev *fmi.EventContext) error {
	c, ok := ev.Crossed(0)
	if !ok || c.Direction != fmi.Falling || ev.State[1] >= 0 {
		return nil
	}

	d := ev.Discrete
	v := -d.Real("e") * ev.State[1]
	if err := d.SetInt("bounces", d.Int("bounces")+1); err != nil {
		return err
	}
	ev.Reinit(0, math.Abs(ev.State[0]))
	if v < d.Real("v_min") {
		ev.Reinit(1, 0)
		ev.Terminate("ball at rest")
		return nil
	}
	ev.Reinit(1, v)
	return nil
}
