package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/san-kum/fmisim/internal/sim"
)

type IntervalStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

// Cause names what opened an event episode: its triggering crossings, or
// "time" for a time event without crossings.
func Cause(rec sim.EventRecord) string {
	trig := rec.Triggers()
	if len(trig) == 0 {
		return "time"
	}
	parts := make([]string, len(trig))
	for i, c := range trig {
		parts[i] = c.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// EventIntervals groups events by cause and summarizes the time between
// consecutive events of the same cause. Causes seen once have Count 0.
func EventIntervals(events []sim.EventRecord) map[string]IntervalStats {
	last := make(map[string]float64)
	out := make(map[string]IntervalStats)
	for _, ev := range events {
		cause := Cause(ev)
		prev, seen := last[cause]
		last[cause] = ev.Time
		st := out[cause]
		if !seen {
			st.Min = math.Inf(1)
			out[cause] = st
			continue
		}
		d := ev.Time - prev
		st.Mean = (st.Mean*float64(st.Count) + d) / float64(st.Count+1)
		st.Count++
		st.Min = math.Min(st.Min, d)
		st.Max = math.Max(st.Max, d)
		out[cause] = st
	}
	for cause, st := range out {
		if st.Count == 0 {
			st.Min = 0
			out[cause] = st
		}
	}
	return out
}
