package models

import (
	"math"
	"testing"

	"github.com/san-kum/fmisim/internal/fmi"
)

func TestDescriptionsValid(t *testing.T) {
	tests := []struct {
		name string
		m    fmi.Model
		ni   int
	}{
		{"bouncing_ball", NewBouncingBall(nil), 1},
		{"thermostat", NewThermostat(nil), 2},
		{"relay_cascade", NewRelayCascade(nil), 2},
		{"sampler", NewSampler(nil), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := tt.m.Describe()
			if err := desc.Validate(); err != nil {
				t.Fatalf("invalid description: %v", err)
			}
			if desc.Name != tt.name {
				t.Errorf("expected name %s, got %s", tt.name, desc.Name)
			}
			if desc.NumIndicators != tt.ni {
				t.Errorf("expected %d indicators, got %d", tt.ni, desc.NumIndicators)
			}
		})
	}
}

func TestBouncingBallImpact(t *testing.T) {
	b := NewBouncingBall(map[string]float64{"e": 0.5})
	d := fmi.NewDiscrete(b.Describe().Discrete)
	x := fmi.State{-1e-9, -4}

	ev := fmi.NewEventContext(1, x, d, []fmi.Crossing{{Index: 0, Direction: fmi.Falling}}, false, 1)
	if err := b.Update(ev); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	r := ev.Reinitialized()
	if r == nil {
		t.Fatal("expected reinitialized state")
	}
	if math.Abs(r[1]-2.0) > 1e-12 {
		t.Errorf("expected rebound speed 2, got %f", r[1])
	}
	if r[0] < 0 {
		t.Errorf("expected height mirrored above floor, got %g", r[0])
	}
	if d.Int("bounces") != 1 {
		t.Errorf("expected 1 bounce, got %d", d.Int("bounces"))
	}
	if x[1] != -4 {
		t.Error("host state modified")
	}
}

func TestBouncingBallRest(t *testing.T) {
	b := NewBouncingBall(map[string]float64{"v_min": 1})
	d := fmi.NewDiscrete(b.Describe().Discrete)
	ev := fmi.NewEventContext(1, fmi.State{0, -0.5}, d, []fmi.Crossing{{Index: 0, Direction: fmi.Falling}}, false, 1)
	if err := b.Update(ev); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, stop := ev.TerminateRequested(); !stop {
		t.Error("expected termination when rebound is below v_min")
	}
}

func TestBouncingBallIgnoresRising(t *testing.T) {
	b := NewBouncingBall(nil)
	d := fmi.NewDiscrete(b.Describe().Discrete)
	ev := fmi.NewEventContext(1, fmi.State{1e-9, 3}, d, []fmi.Crossing{{Index: 0, Direction: fmi.Rising}}, false, 2)
	if err := b.Update(ev); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if ev.Reinitialized() != nil {
		t.Error("rising crossing must not reinitialize")
	}
}

func TestThermostatSwitching(t *testing.T) {
	m := NewThermostat(nil)
	d := fmi.NewDiscrete(m.Describe().Discrete)

	ev := fmi.NewEventContext(0, fmi.State{18}, d, nil, false, 1)
	ev.Initial = true
	if err := m.Update(ev); err != nil {
		t.Fatal(err)
	}
	if !d.Bool("heater") {
		t.Error("expected heater on when starting below t_low")
	}

	ev = fmi.NewEventContext(5, fmi.State{21}, d, []fmi.Crossing{{Index: 1, Direction: fmi.Rising}}, false, 1)
	if err := m.Update(ev); err != nil {
		t.Fatal(err)
	}
	if d.Bool("heater") {
		t.Error("expected heater off above t_high")
	}
	if d.Int("switches") != 2 {
		t.Errorf("expected 2 switches, got %d", d.Int("switches"))
	}
}

func TestRelayCascadeClosesBoth(t *testing.T) {
	m := NewRelayCascade(nil)
	d := fmi.NewDiscrete(m.Describe().Discrete)
	z := make([]float64, 2)

	ev := fmi.NewEventContext(0.5, fmi.State{0.49}, d, []fmi.Crossing{{Index: 0, Direction: fmi.Falling}}, false, 1)
	if err := m.Update(ev); err != nil {
		t.Fatal(err)
	}
	m.Indicators(0.5, fmi.State{0.49}, d, z)
	if z[1] >= 0 {
		t.Fatalf("expected second indicator to flip, got %v", z)
	}

	ev = fmi.NewEventContext(0.5, fmi.State{0.49}, d, []fmi.Crossing{{Index: 1, Direction: fmi.Falling}}, false, 2)
	if err := m.Update(ev); err != nil {
		t.Fatal(err)
	}
	if !d.Bool("relay_a") || !d.Bool("relay_b") {
		t.Error("expected both relays closed")
	}
}

func TestSamplerTimeEvents(t *testing.T) {
	m := NewSampler(map[string]float64{"period": 0.25})
	d := fmi.NewDiscrete(m.Describe().Discrete)

	tests := []struct {
		t, want float64
	}{
		{0, 0.25},
		{0.1, 0.25},
		{0.25, 0.5},
		{0.9, 1.0},
	}
	for _, tt := range tests {
		next, ok := m.NextTimeEvent(tt.t, d)
		if !ok {
			t.Fatal("expected a time event")
		}
		if math.Abs(next-tt.want) > 1e-9 {
			t.Errorf("NextTimeEvent(%g) = %g, want %g", tt.t, next, tt.want)
		}
	}

	ev := fmi.NewEventContext(0.25, fmi.State{0}, d, nil, true, 1)
	if err := m.Update(ev); err != nil {
		t.Fatal(err)
	}
	if d.Int("counter") != 1 {
		t.Errorf("expected counter 1, got %d", d.Int("counter"))
	}
}
