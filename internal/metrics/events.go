package metrics

import (
	"math"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

// EventCount counts handled event episodes, optionally only those of one
// cause.
type EventCount struct {
	name   string
	filter func(sim.EventRecord) bool
	count  int
}

func NewEventCount() *EventCount {
	return &EventCount{name: "events"}
}

func NewStateEventCount() *EventCount {
	return &EventCount{name: "state_events", filter: func(r sim.EventRecord) bool { return len(r.Triggers()) > 0 }}
}

func NewTimeEventCount() *EventCount {
	return &EventCount{name: "time_events", filter: func(r sim.EventRecord) bool { return r.TimeEvent }}
}

func NewReinitCount() *EventCount {
	return &EventCount{name: "reinits", filter: func(r sim.EventRecord) bool { return r.StatesChanged }}
}

func (e *EventCount) Name() string { return e.name }

func (e *EventCount) OnStep(t float64, x fmi.State, z []float64) {}

func (e *EventCount) OnEvent(rec sim.EventRecord) {
	if e.filter == nil || e.filter(rec) {
		e.count++
	}
}

func (e *EventCount) Value() float64 { return float64(e.count) }

func (e *EventCount) Reset() { e.count = 0 }

// Iterations tracks the event iteration counts, as mean or maximum.
type Iterations struct {
	name  string
	max   bool
	total int
	peak  int
	n     int
}

func NewMeanIterations() *Iterations { return &Iterations{name: "mean_iterations"} }

func NewMaxIterations() *Iterations { return &Iterations{name: "max_iterations", max: true} }

func (it *Iterations) Name() string { return it.name }

func (it *Iterations) OnStep(t float64, x fmi.State, z []float64) {}

func (it *Iterations) OnEvent(rec sim.EventRecord) {
	it.total += rec.Iterations
	if rec.Iterations > it.peak {
		it.peak = rec.Iterations
	}
	it.n++
}

func (it *Iterations) Value() float64 {
	if it.max {
		return float64(it.peak)
	}
	if it.n == 0 {
		return 0
	}
	return float64(it.total) / float64(it.n)
}

func (it *Iterations) Reset() {
	it.total, it.peak, it.n = 0, 0, 0
}

// Indicators tracks the smallest nonzero indicator magnitude seen at step
// ends, a measure of how close the run grazed a surface without
// crossing it.
type Indicators struct {
	closest float64
}

func NewIndicators() *Indicators { return &Indicators{closest: math.Inf(1)} }

func (m *Indicators) Name() string { return "closest_indicator" }

func (m *Indicators) OnStep(t float64, x fmi.State, z []float64) {
	for _, v := range z {
		if a := math.Abs(v); a > 0 && a < m.closest {
			m.closest = a
		}
	}
}

func (m *Indicators) OnEvent(rec sim.EventRecord) {}

func (m *Indicators) Value() float64 {
	if math.IsInf(m.closest, 1) {
		return 0
	}
	return m.closest
}

func (m *Indicators) Reset() { m.closest = math.Inf(1) }
