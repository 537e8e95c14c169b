package metrics

import (
	"math"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

// EventInterval measures the time between consecutive events. Intervals
// shrinking towards zero point at Zeno behaviour.
type EventInterval struct {
	name      string
	min       bool
	last      float64
	seen      bool
	total     float64
	shortest  float64
	intervals int
}

func NewMeanEventInterval() *EventInterval {
	return &EventInterval{name: "mean_event_interval", shortest: math.Inf(1)}
}

func NewMinEventInterval() *EventInterval {
	return &EventInterval{name: "min_event_interval", min: true, shortest: math.Inf(1)}
}

func (e *EventInterval) Name() string { return e.name }

func (e *EventInterval) OnStep(t float64, x fmi.State, z []float64) {}

func (e *EventInterval) OnEvent(rec sim.EventRecord) {
	if e.seen {
		d := rec.Time - e.last
		e.total += d
		e.intervals++
		if d < e.shortest {
			e.shortest = d
		}
	}
	e.last = rec.Time
	e.seen = true
}

func (e *EventInterval) Value() float64 {
	if e.intervals == 0 {
		return 0
	}
	if e.min {
		return e.shortest
	}
	return e.total / float64(e.intervals)
}

func (e *EventInterval) Reset() {
	e.last, e.total, e.intervals, e.seen = 0, 0, 0, false
	e.shortest = math.Inf(1)
}

// Default returns a fresh set of the standard run metrics.
func Default() []sim.Metric {
	return []sim.Metric{
		NewEventCount(),
		NewStateEventCount(),
		NewTimeEventCount(),
		NewReinitCount(),
		NewMeanIterations(),
		NewMaxIterations(),
		NewMeanEventInterval(),
		NewMinEventInterval(),
		NewIndicators(),
	}
}
