package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m model) View() string {
	if m.screen == screenMenu {
		return m.viewMenu()
	}
	return m.viewSim()
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("            " + cyan.Render("f m i s i m") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-16s", c.Name)) + dim.Render(c.Summary) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-16s", c.Name)) + dimmer.Render(c.Summary) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter start   q quit") + "\n")
	return b.String()
}

func (m model) status() string {
	switch {
	case m.err != nil:
		return red.Render("●") + " " + red.Render("failed")
	case m.master != nil && m.master.Done():
		return dim.Render("■") + " " + dim.Render("done")
	case m.paused:
		return yellow.Render("○") + " " + yellow.Render("paused")
	}
	return green.Render("●") + " " + green.Render("running")
}

func (m model) viewSim() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n   %s  %s  %s\n", cyan.Render(m.selected), m.status(), dim.Render(fmt.Sprintf("x%d", m.speed))))

	if m.master == nil {
		if m.err != nil {
			b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
		}
		b.WriteString("\n" + dim.Render("   esc back  q quit") + "\n")
		return b.String()
	}

	comp := m.master.Component()
	t := comp.Time()

	progress := 0.0
	if m.cfg.Duration > 0 {
		progress = t / m.cfg.Duration
	}
	if progress > 1 {
		progress = 1
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s\n\n", bar, dim.Render(fmt.Sprintf("%.3fs/%.0fs", t, m.cfg.Duration))))

	b.WriteString(fmt.Sprintf("   %s %s   %s %s   %s %s\n\n",
		dim.Render("mode"), magenta.Render(comp.Mode().String()),
		dim.Render("phase"), magenta.Render(comp.Phase().String()),
		dim.Render("events"), white.Render(fmt.Sprintf("%d", m.events))))

	left := m.viewStates() + "\n" + m.viewIndicators()
	right := m.viewDiscrete()
	b.WriteString(indent(lipgloss.JoinHorizontal(lipgloss.Top, panel.Render(left), "  ", panel.Render(right)), "   ") + "\n")

	if m.rec != nil && len(m.rec.history) > 1 {
		label := "x0"
		if names := comp.Description().StateNames; len(names) > 0 {
			label = names[0]
		}
		b.WriteString(fmt.Sprintf("\n   %s %s\n", dim.Render(label), cyan.Render(sparkline(m.rec.history, 40))))
	}

	b.WriteString("\n" + m.viewEventLog())

	if m.err != nil {
		b.WriteString("\n   " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  n step  ±speed  r restart  esc menu  q quit") + "\n")
	return b.String()
}

func (m model) viewStates() string {
	comp := m.master.Component()
	names := comp.Description().StateNames
	var b strings.Builder
	b.WriteString(dim.Render("states") + "\n")
	for i, v := range comp.States() {
		name := fmt.Sprintf("x%d", i)
		if i < len(names) {
			name = names[i]
		}
		b.WriteString(fmt.Sprintf("%s %s\n", dim.Render(fmt.Sprintf("%-8s", name)), white.Render(fmt.Sprintf("%10.4f", v))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) viewIndicators() string {
	comp := m.master.Component()
	var b strings.Builder
	b.WriteString(dim.Render("indicators") + "\n")
	z := make([]float64, comp.NumIndicators())
	if err := comp.GetEventIndicators(z); err != nil {
		return b.String() + red.Render(err.Error())
	}
	for i, v := range z {
		b.WriteString(fmt.Sprintf("%s %s\n", dim.Render(fmt.Sprintf("z%-7d", i)), signStyle(v).Render(fmt.Sprintf("%10.4f", v))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) viewDiscrete() string {
	snap := m.master.Component().DiscreteSnapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(dim.Render("discrete") + "\n")
	for _, name := range names {
		b.WriteString(fmt.Sprintf("%s %s\n", dim.Render(fmt.Sprintf("%-10s", name)), white.Render(fmt.Sprintf("%8.3g", snap[name]))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) viewEventLog() string {
	var b strings.Builder
	b.WriteString(dim.Render("   event log") + "\n")
	if m.rec == nil || len(m.rec.events) == 0 {
		b.WriteString(dimmer.Render("   none yet") + "\n")
		return b.String()
	}
	for _, ev := range m.rec.events {
		cause := "time"
		if trig := ev.Triggers(); len(trig) > 0 {
			parts := make([]string, len(trig))
			for i, c := range trig {
				parts[i] = c.String()
			}
			cause = strings.Join(parts, ", ")
		}
		line := fmt.Sprintf("   t=%-10.5f %-22s iter=%d", ev.Time, cause, ev.Iterations)
		if ev.StatesChanged {
			line += " reinit"
		}
		if ev.Terminate {
			line += " terminate: " + ev.TerminateReason
		}
		b.WriteString(white.Render(line) + "\n")
	}
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := len(data) / width
	if step < 1 {
		step = 1
	}
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(chars[idx])
	}
	return sb.String()
}
