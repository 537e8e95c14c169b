package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

func TestResultSVG(t *testing.T) {
	result := &sim.Result{
		StateNames: []string{"h", "v"},
		Times:      []float64{0, 0.5, 1.0},
		States:     []fmi.State{{1, 0}, {0, -4.9}, {0.5, 2}},
		Events:     []sim.EventRecord{{Time: 0.5}, {Time: 0.9, TimeEvent: true}},
	}

	var buf bytes.Buffer
	if err := ResultSVG(&buf, result, DefaultSVGOptions()); err != nil {
		t.Fatal(err)
	}
	svg := buf.String()

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("not a complete svg document")
	}
	if n := strings.Count(svg, `class="state"`); n != 2 {
		t.Errorf("expected 2 state paths, got %d", n)
	}
	if n := strings.Count(svg, `class="event"`); n != 2 {
		t.Errorf("expected 2 event markers, got %d", n)
	}
	if !strings.Contains(svg, `data-name="v"`) || !strings.Contains(svg, `class="zero"`) {
		t.Error("missing state name or zero line")
	}
}

func TestResultSVGNoEvents(t *testing.T) {
	result := &sim.Result{
		Times:  []float64{0, 1},
		States: []fmi.State{{1}, {1}},
		Events: []sim.EventRecord{{Time: 0.5}},
	}
	opts := DefaultSVGOptions()
	opts.Events = false

	var buf bytes.Buffer
	if err := ResultSVG(&buf, result, opts); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `class="event"`) {
		t.Error("event markers drawn although disabled")
	}
	if !strings.Contains(buf.String(), `data-name="x0"`) {
		t.Error("unnamed state not labelled by index")
	}
}

func TestResultSVGTooShort(t *testing.T) {
	result := &sim.Result{Times: []float64{0}, States: []fmi.State{{1}}}
	if err := ResultSVG(&bytes.Buffer{}, result, DefaultSVGOptions()); err == nil {
		t.Error("expected error for a single sample")
	}
}
