package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/fmisim/internal/fmi"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Derive(x fmi.State, t float64) fmi.State {
	return fmi.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x fmi.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

type freeFall struct{ g float64 }

func (f freeFall) Derive(x fmi.State, t float64) fmi.State {
	return fmi.State{x[1], -f.g}
}

type blowUp struct{}

func (blowUp) Derive(x fmi.State, t float64) fmi.State {
	return fmi.State{math.Inf(1)}
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := fmi.State{1.0, 0.0}
	dt := 0.01
	steps := 100
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)
	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestIntegratorsExactForFreeFall(t *testing.T) {
	// Quadratic trajectories are integrated exactly by RK4 and RK45.
	sys := freeFall{g: 9.81}
	for _, name := range []string{"rk4", "rk45"} {
		t.Run(name, func(t *testing.T) {
			integ, err := New(name)
			if err != nil {
				t.Fatal(err)
			}
			x := integ.Step(sys, fmi.State{1, 0}, 0, 0.2)
			want := 1 - 0.5*9.81*0.04
			if math.Abs(x[0]-want) > 1e-12 {
				t.Errorf("h = %.15f, want %.15f", x[0], want)
			}
		})
	}
}

func TestEulerStep(t *testing.T) {
	x := NewEuler().Step(freeFall{g: 10}, fmi.State{1, 0}, 0, 0.1)
	if x[0] != 1 || math.Abs(x[1]+1) > 1e-15 {
		t.Errorf("unexpected euler step %v", x)
	}
}

func TestRK45EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := fmi.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01
	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45AdaptiveStep(t *testing.T) {
	x, newDt, err := NewRK45().StepAdaptive(&harmonicOscillator{}, fmi.State{1.0, 0.0}, 0, 0.1, 1e-6)
	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}
	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}
	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}

func TestRK45InvalidState(t *testing.T) {
	_, _, err := NewRK45().StepAdaptive(blowUp{}, fmi.State{1}, 0, 0.1, 1e-6)
	if !errors.Is(err, fmi.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestNewUnknown(t *testing.T) {
	if _, err := New("leapfrog"); err == nil {
		t.Error("expected error for unknown integrator")
	}
	for _, name := range Names() {
		if _, err := New(name); err != nil {
			t.Errorf("New(%s): %v", name, err)
		}
	}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &harmonicOscillator{}
	x := fmi.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &harmonicOscillator{}
	x := fmi.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func TestRK45RejectsLargeStep(t *testing.T) {
	_, newDt, err := NewRK45().StepAdaptive(&harmonicOscillator{}, fmi.State{1.0, 0.0}, 0, 1.0, 1e-10)
	if !errors.Is(err, ErrStepRejected) {
		t.Fatalf("expected ErrStepRejected, got %v", err)
	}
	if newDt <= 0 || newDt >= 1.0 {
		t.Errorf("expected a smaller retry size, got %f", newDt)
	}
}

func TestTableauConsistency(t *testing.T) {
	tests := []struct {
		name string
		tb   tableau
	}{
		{"euler", forwardEuler},
		{"rk4", classicRK4},
		{"rk45", dormandPrince},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.tb.coupling) != len(tt.tb.nodes) || len(tt.tb.weights) != len(tt.tb.nodes) {
				t.Fatalf("shape mismatch: %d nodes, %d rows, %d weights", len(tt.tb.nodes), len(tt.tb.coupling), len(tt.tb.weights))
			}
			for s, row := range tt.tb.coupling {
				sum := 0.0
				for _, a := range row {
					sum += a
				}
				if math.Abs(sum-tt.tb.nodes[s]) > 1e-12 {
					t.Errorf("stage %d: row sums to %g, node is %g", s, sum, tt.tb.nodes[s])
				}
			}
			total := 0.0
			for _, w := range tt.tb.weights {
				total += w
			}
			if math.Abs(total-1) > 1e-12 {
				t.Errorf("weights sum to %g", total)
			}
		})
	}
}
