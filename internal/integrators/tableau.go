package integrators

import "github.com/san-kum/fmisim/internal/fmi"

// tableau is an explicit Runge-Kutta scheme. coupling[s] holds the
// weights of the earlier slopes in stage s; its row 0 is empty.
type tableau struct {
	nodes    []float64
	coupling [][]float64
	weights  []float64
}

// step evaluates every stage and returns the combined solution together
// with the slopes, which embedded schemes reuse for their error estimate.
func (tb *tableau) step(sys System, x fmi.State, t, dt float64) (fmi.State, []fmi.State) {
	k := make([]fmi.State, len(tb.nodes))
	stage := make(fmi.State, len(x))
	for s := range tb.nodes {
		if s == 0 {
			k[0] = sys.Derive(x, t)
			continue
		}
		for i := range x {
			sum := 0.0
			for j, a := range tb.coupling[s] {
				sum += a * k[j][i]
			}
			stage[i] = x[i] + dt*sum
		}
		k[s] = sys.Derive(stage, t+tb.nodes[s]*dt)
	}

	out := make(fmi.State, len(x))
	for i := range x {
		sum := 0.0
		for s, w := range tb.weights {
			sum += w * k[s][i]
		}
		out[i] = x[i] + dt*sum
	}
	return out, k
}
