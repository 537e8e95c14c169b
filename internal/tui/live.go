// Package tui is a bubbletea front end that steps a master one
// integrator step at a time and shows the component as it runs.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

const (
	historyLen  = 60
	eventLogLen = 8
)

// Choice is one entry of the model menu.
type Choice struct {
	Name    string
	Summary string
}

// Builder creates a not yet started master for the named model.
type Builder func(model string) (*sim.Master, sim.Config, error)

type screen int

const (
	screenMenu screen = iota
	screenSim
)

// recorder keeps the recent history the view draws from.
type recorder struct {
	history []float64
	events  []sim.EventRecord
}

func (r *recorder) OnStep(t float64, x fmi.State, z []float64) {
	if len(x) == 0 {
		return
	}
	r.history = append(r.history, x[0])
	if len(r.history) > historyLen {
		r.history = r.history[1:]
	}
}

func (r *recorder) OnEvent(rec sim.EventRecord) {
	r.events = append(r.events, rec)
	if len(r.events) > eventLogLen {
		r.events = r.events[1:]
	}
}

type model struct {
	screen  screen
	cursor  int
	choices []Choice
	build   Builder

	selected string
	master   *sim.Master
	cfg      sim.Config
	rec      *recorder
	events   int
	paused   bool
	speed    int
	err      error

	width  int
	height int
}

func newModel(choices []Choice, build Builder) model {
	return model{
		choices: choices,
		build:   build,
		speed:   1,
		width:   80,
		height:  24,
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	if m.screen == screenSim {
		return tick()
	}
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.screen != screenSim || m.master == nil {
			return m, nil
		}
		if !m.paused {
			m.advance()
		}
		if m.running() {
			return m, tick()
		}
		return m, nil
	}
	return m, nil
}

func (m model) running() bool {
	return m.master != nil && !m.master.Done() && m.err == nil
}

func (m *model) advance() {
	for i := 0; i < m.speed && m.running(); i++ {
		if err := m.master.Step(); err != nil {
			m.err = err
		}
	}
	if r := m.master.Result(); r != nil {
		m.events = len(r.Events)
	}
}

func (m *model) start(name string) {
	m.selected = name
	m.err = nil
	m.paused = false
	m.events = 0
	m.rec = &recorder{}

	master, cfg, err := m.build(name)
	if err != nil {
		m.master = nil
		m.err = err
		return
	}
	master.AddObserver(m.rec)
	m.master, m.cfg = master, cfg
	m.err = master.Start(cfg)
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.screen == screenMenu {
		return m.menuKey(msg)
	}
	return m.simKey(msg)
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.choices) == 0 {
			return m, nil
		}
		m.screen = screenSim
		m.start(m.choices[m.cursor].Name)
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc":
		m.screen = screenMenu
		m.master = nil
		return m, tea.ClearScreen
	case " ":
		m.paused = !m.paused
	case "n":
		// single step while paused
		if m.paused && m.running() {
			if err := m.master.Step(); err != nil {
				m.err = err
			}
		}
	case "+", "=":
		if m.speed < 64 {
			m.speed *= 2
		}
	case "-":
		if m.speed > 1 {
			m.speed /= 2
		}
	case "r":
		m.start(m.selected)
		return m, tea.Batch(tea.ClearScreen, tick())
	}
	return m, nil
}

// Run starts the live view with a model menu.
func Run(choices []Choice, build Builder) error {
	p := tea.NewProgram(newModel(choices, build), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RunModel skips the menu and goes straight to the named model.
func RunModel(name string, build Builder) error {
	m := newModel([]Choice{{Name: name}}, build)
	m.screen = screenSim
	m.start(name)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
