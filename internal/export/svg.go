// Package export renders stored runs for use outside the terminal.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/fmisim/internal/sim"
)

var palette = []string{"#00ccff", "#00ff88", "#ffcc00", "#ff66cc", "#ff4444"}

type SVGOptions struct {
	Width  int
	Height int
	// Events draws a vertical marker at every event time.
	Events bool
}

func DefaultSVGOptions() SVGOptions {
	return SVGOptions{Width: 800, Height: 300, Events: true}
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) pad() {
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	if b.maxX == b.minX {
		b.maxX = b.minX + rangeX
	}
}

func resultBounds(result *sim.Result) bounds {
	b := bounds{minX: result.Times[0], maxX: result.Times[len(result.Times)-1]}
	b.minY, b.maxY = result.States[0][0], result.States[0][0]
	for _, x := range result.States {
		for _, v := range x {
			if v < b.minY {
				b.minY = v
			}
			if v > b.maxY {
				b.maxY = v
			}
		}
	}
	b.pad()
	return b
}

// ResultSVG plots every state of result over time, one path per state.
func ResultSVG(w io.Writer, result *sim.Result, opts SVGOptions) error {
	if len(result.Times) < 2 || len(result.States) != len(result.Times) || len(result.States[0]) == 0 {
		return fmt.Errorf("export: need at least two samples to plot")
	}
	b := resultBounds(result)
	width, height := float64(opts.Width), float64(opts.Height)
	px := func(t float64) float64 { return (t - b.minX) / (b.maxX - b.minX) * width }
	py := func(v float64) float64 { return height - (v-b.minY)/(b.maxY-b.minY)*height }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, opts.Width, opts.Height, opts.Width, opts.Height))

	if b.minY < 0 && b.maxY > 0 {
		sb.WriteString(fmt.Sprintf(`<line class="zero" x1="0" y1="%.1f" x2="%.0f" y2="%.1f" stroke="#333344"/>
`, py(0), width, py(0)))
	}

	if opts.Events {
		for _, ev := range result.Events {
			color := "#553355"
			if ev.TimeEvent {
				color = "#335555"
			}
			sb.WriteString(fmt.Sprintf(`<line class="event" x1="%.1f" y1="0" x2="%.1f" y2="%.0f" stroke="%s"/>
`, px(ev.Time), px(ev.Time), height, color))
		}
	}

	for idx := range result.States[0] {
		name := fmt.Sprintf("x%d", idx)
		if idx < len(result.StateNames) {
			name = result.StateNames[idx]
		}
		sb.WriteString(fmt.Sprintf(`<path class="state" data-name="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`,
			name, palette[idx%len(palette)]))
		for i, x := range result.States {
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(result.Times[i]), py(x[idx])))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(result.Times[i]), py(x[idx])))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
