package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	eventsFile   = "events.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunInfo is what the caller knows about a run beyond its result.
type RunInfo struct {
	Integrator string
	Dt         float64
	Duration   float64
	Params     map[string]float64
}

type RunMetadata struct {
	ID              string             `json:"id"`
	Model           string             `json:"model"`
	Instance        string             `json:"instance"`
	StateNames      []string           `json:"state_names,omitempty"`
	Timestamp       time.Time          `json:"timestamp"`
	Integrator      string             `json:"integrator"`
	Dt              float64            `json:"dt"`
	Duration        float64            `json:"duration"`
	Params          map[string]float64 `json:"params,omitempty"`
	Steps           int                `json:"steps"`
	Events          int                `json:"events"`
	Terminated      bool               `json:"terminated"`
	TerminateReason string             `json:"terminate_reason,omitempty"`
	FinalDiscrete   map[string]float64 `json:"final_discrete,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
}

func (s *Store) Save(info RunInfo, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", result.Model, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:              runID,
		Model:           result.Model,
		Instance:        result.Instance,
		StateNames:      result.StateNames,
		Timestamp:       now,
		Integrator:      info.Integrator,
		Dt:              info.Dt,
		Duration:        info.Duration,
		Params:          info.Params,
		Steps:           result.StepsTaken,
		Events:          len(result.Events),
		Terminated:      result.Terminated,
		TerminateReason: result.TerminateReason,
		FinalDiscrete:   result.FinalDiscrete,
		Metrics:         result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), result); err != nil {
		return "", err
	}
	if err := writeEvents(filepath.Join(runDir, eventsFile), result.Events); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func writeStates(path string, result *sim.Result) error {
	if len(result.States) == 0 {
		return writeCSV(path, nil)
	}

	header := []string{"time"}
	for i := range result.States[0] {
		if i < len(result.StateNames) {
			header = append(header, result.StateNames[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	ni := 0
	if len(result.Indicators) > 0 {
		ni = len(result.Indicators[0])
	}
	for i := 0; i < ni; i++ {
		header = append(header, fmt.Sprintf("z%d", i))
	}

	rows := [][]string{header}
	for i := range result.States {
		row := []string{formatFloat(result.Times[i])}
		for _, v := range result.States[i] {
			row = append(row, formatFloat(v))
		}
		if i < len(result.Indicators) {
			for _, v := range result.Indicators[i] {
				row = append(row, formatFloat(v))
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(path, rows)
}

func discreteNames(events []sim.EventRecord) []string {
	if len(events) == 0 {
		return nil
	}
	names := make([]string, 0, len(events[0].Discrete))
	for name := range events[0].Discrete {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeEvents(path string, events []sim.EventRecord) error {
	names := discreteNames(events)
	header := []string{"time", "iterations", "time_event", "states_changed", "terminate", "reason", "triggers"}
	for _, name := range names {
		header = append(header, "d:"+name)
	}

	rows := [][]string{header}
	for _, ev := range events {
		triggers := make([]string, 0, len(ev.Triggers()))
		for _, c := range ev.Triggers() {
			triggers = append(triggers, c.String())
		}
		row := []string{
			formatFloat(ev.Time),
			strconv.Itoa(ev.Iterations),
			strconv.FormatBool(ev.TimeEvent),
			strconv.FormatBool(ev.StatesChanged),
			strconv.FormatBool(ev.Terminate),
			ev.TerminateReason,
			strings.Join(triggers, ";"),
		}
		for _, name := range names {
			row = append(row, formatFloat(ev.Discrete[name]))
		}
		rows = append(rows, row)
	}
	return writeCSV(path, rows)
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadStates returns the state columns of states.csv; indicator columns
// are skipped.
func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	records, err := s.readCSV(runID, statesFile)
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	numStates := 0
	for _, col := range records[0][1:] {
		if strings.HasPrefix(col, "z") && isIndex(col[1:]) {
			break
		}
		numStates++
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < numStates+1 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		state := make([]float64, numStates)
		for j := range state {
			state[j], err = strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s: row at t=%s: %w", runID, record[0], err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}
	return states, times, nil
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func (s *Store) LoadEvents(runID string) ([]sim.EventRecord, error) {
	records, err := s.readCSV(runID, eventsFile)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []sim.EventRecord{}, nil
	}

	header := records[0]
	events := make([]sim.EventRecord, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 7 {
			continue
		}
		ev, err := parseEvent(header, record)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseEvent(header, record []string) (sim.EventRecord, error) {
	var ev sim.EventRecord
	var err error
	if ev.Time, err = strconv.ParseFloat(record[0], 64); err != nil {
		return ev, err
	}
	if ev.Iterations, err = strconv.Atoi(record[1]); err != nil {
		return ev, err
	}
	ev.TimeEvent = record[2] == "true"
	ev.StatesChanged = record[3] == "true"
	ev.Terminate = record[4] == "true"
	ev.TerminateReason = record[5]

	if record[6] != "" {
		var first []fmi.Crossing
		for _, s := range strings.Split(record[6], ";") {
			c, err := parseCrossing(s)
			if err != nil {
				return ev, err
			}
			first = append(first, c)
		}
		ev.Crossings = [][]fmi.Crossing{first}
	}

	ev.Discrete = make(map[string]float64)
	for i := 7; i < len(record) && i < len(header); i++ {
		v, err := strconv.ParseFloat(record[i], 64)
		if err != nil {
			return ev, err
		}
		ev.Discrete[strings.TrimPrefix(header[i], "d:")] = v
	}
	return ev, nil
}

func parseCrossing(s string) (fmi.Crossing, error) {
	var c fmi.Crossing
	var dir string
	if _, err := fmt.Sscanf(s, "z%d %s", &c.Index, &dir); err != nil {
		return c, fmt.Errorf("crossing %q: %w", s, err)
	}
	switch dir {
	case "rising":
		c.Direction = fmi.Rising
	case "falling":
		c.Direction = fmi.Falling
	default:
		return c, fmt.Errorf("crossing %q: unknown direction", s)
	}
	return c, nil
}
