package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/fmisim/internal/sim"
)

type ExportEvent struct {
	Time          float64            `json:"time"`
	Iterations    int                `json:"iterations"`
	TimeEvent     bool               `json:"time_event"`
	StatesChanged bool               `json:"states_changed"`
	Triggers      []string           `json:"triggers,omitempty"`
	Discrete      map[string]float64 `json:"discrete,omitempty"`
	Terminate     bool               `json:"terminate,omitempty"`
}

type ExportData struct {
	Model           string        `json:"model"`
	Instance        string        `json:"instance"`
	Integrator      string        `json:"integrator"`
	Dt              float64       `json:"dt"`
	Duration        float64       `json:"duration"`
	Steps           int           `json:"steps"`
	StateNames      []string      `json:"state_names"`
	Times           []float64     `json:"times"`
	States          [][]float64   `json:"states"`
	Indicators      [][]float64   `json:"indicators"`
	Events          []ExportEvent `json:"events"`
	Terminated      bool          `json:"terminated"`
	TerminateReason string        `json:"terminate_reason,omitempty"`
}

func NewExportData(info RunInfo, result *sim.Result) ExportData {
	data := ExportData{
		Model:           result.Model,
		Instance:        result.Instance,
		Integrator:      info.Integrator,
		Dt:              info.Dt,
		Duration:        info.Duration,
		Steps:           result.StepsTaken,
		StateNames:      result.StateNames,
		Times:           result.Times,
		States:          make([][]float64, len(result.States)),
		Indicators:      result.Indicators,
		Events:          make([]ExportEvent, 0, len(result.Events)),
		Terminated:      result.Terminated,
		TerminateReason: result.TerminateReason,
	}
	for i, s := range result.States {
		data.States[i] = s
	}
	for _, ev := range result.Events {
		out := ExportEvent{
			Time:          ev.Time,
			Iterations:    ev.Iterations,
			TimeEvent:     ev.TimeEvent,
			StatesChanged: ev.StatesChanged,
			Discrete:      ev.Discrete,
			Terminate:     ev.Terminate,
		}
		for _, c := range ev.Triggers() {
			out.Triggers = append(out.Triggers, c.String())
		}
		data.Events = append(data.Events, out)
	}
	return data
}

func WriteJSON(w io.Writer, info RunInfo, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(info, result))
}

func ExportJSON(path string, info RunInfo, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, info, result)
}
