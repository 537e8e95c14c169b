package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fmisim/internal/config"
	"github.com/san-kum/fmisim/internal/experiment"
	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/logging"
	"github.com/san-kum/fmisim/internal/sim"
	"github.com/san-kum/fmisim/internal/storage"
	"github.com/san-kum/fmisim/internal/tui"
)

var (
	heading = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	failure = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
)

func newLogger() *logging.Logger {
	return logging.New(os.Stderr, logging.Options{Level: logLevel, Categories: logCats, JSON: logJSON})
}

func parseFloats(kind string, in map[string]string) (map[string]float64, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", kind, k, err)
		}
		out[k] = f
	}
	return out, nil
}

func merge(dst, src map[string]float64) map[string]float64 {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]float64, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// resolveConfig layers defaults, preset, config file and changed flags in
// that order.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Model = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Model != args[0] {
			return nil, fmt.Errorf("config is for model %s, not %s", loaded.Model, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("max-iter") {
		cfg.MaxEventIterations = maxIter
	}
	if flags.Changed("event-tol") {
		cfg.EventTolerance = eventTol
	}
	if flags.Changed("no-locate") {
		cfg.LocateEvents = !noLocate
	}
	if flags.Changed("adaptive") {
		cfg.Adaptive = adaptive
	}
	if flags.Changed("tol") {
		cfg.Tolerance = tolerance
	}

	p, err := parseFloats("param", params)
	if err != nil {
		return nil, err
	}
	cfg.Params = merge(cfg.Params, p)

	d, err := parseFloats("discrete", discrete)
	if err != nil {
		return nil, err
	}
	cfg.Discrete = merge(cfg.Discrete, d)

	if !cmd.Flags().Changed("log-level") && cfg.Log.Level != "" {
		logLevel = cfg.Log.Level
	}
	if !cmd.Flags().Changed("log-cat") && len(cfg.Log.Categories) > 0 {
		logCats = cfg.Log.Categories
	}
	if !cmd.Flags().Changed("log-json") && cfg.Log.JSON {
		logJSON = true
	}

	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger()
	exp, err := experiment.New(cfg, nil, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(heading.Render("running " + cfg.Model))
	start := time.Now()
	result, err := exp.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Zerolog().Error().Err(err).
			Str("status", fmi.StatusOf(err).String()).
			Str("kind", fmi.KindOf(err).String()).
			Msg("simulation failed")
		if result == nil {
			return err
		}
		fmt.Println(failure.Render("failed: " + err.Error()))
	}

	printSummary(result, elapsed)

	if noSave {
		return err
	}
	st := storage.New(dataDir)
	if initErr := st.Init(); initErr != nil {
		return initErr
	}
	runID, saveErr := st.Save(runInfo(cfg), result)
	if saveErr != nil {
		return saveErr
	}
	fmt.Printf("run id: %s\n", runID)
	return err
}

func runInfo(cfg *config.Config) storage.RunInfo {
	return storage.RunInfo{
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Params:     cfg.Params,
	}
}

func printSummary(result *sim.Result, elapsed time.Duration) {
	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d  events: %d\n", result.StepsTaken, len(result.Events))
	if n := len(result.Times); n > 0 {
		fmt.Printf("final time: %.6f\n", result.Times[n-1])
		fmt.Println("\nfinal state:")
		for i, v := range result.States[n-1] {
			name := fmt.Sprintf("x%d", i)
			if i < len(result.StateNames) {
				name = result.StateNames[i]
			}
			fmt.Printf("  %s: %.6f\n", name, v)
		}
	}
	if result.Terminated {
		fmt.Printf("\nterminated: %s\n", result.TerminateReason)
	}
	if len(result.FinalDiscrete) > 0 {
		fmt.Println("\ndiscrete:")
		for _, name := range sortedKeys(result.FinalDiscrete) {
			fmt.Printf("  %s: %g\n", name, result.FinalDiscrete[name])
		}
	}
	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range sortedKeys(result.Metrics) {
			fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
		}
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tDURATION\tDT\tINTEG\tEVENTS\tEND")

	for _, run := range runs {
		end := "duration"
		if run.Terminated {
			end = run.TerminateReason
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%s\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Events,
			end,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	registry := experiment.NewRegistry()
	var names []string
	if m, err := registry.GetModel(meta.Model, meta.Params); err == nil {
		names = m.Describe().StateNames
	}

	fmt.Println(heading.Render("run: " + meta.ID))
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d  events: %d\n\n", len(states), meta.Events)

	for varIdx := range states[0] {
		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][varIdx]
		}

		caption := fmt.Sprintf("x%d vs time", varIdx)
		if varIdx < len(names) {
			caption = names[varIdx] + " vs time"
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(plotHeight),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func showEvents(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	events, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("no events")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCAUSE\tITER\tREINIT\tDISCRETE")
	for _, ev := range events {
		cause := "time event"
		if trig := ev.Triggers(); len(trig) > 0 {
			parts := make([]string, len(trig))
			for i, c := range trig {
				parts[i] = c.String()
			}
			cause = strings.Join(parts, ", ")
		}
		if ev.Terminate {
			cause += " (terminate: " + ev.TerminateReason + ")"
		}

		vars := make([]string, 0, len(ev.Discrete))
		for _, name := range sortedKeys(ev.Discrete) {
			vars = append(vars, fmt.Sprintf("%s=%g", name, ev.Discrete[name]))
		}
		fmt.Fprintf(w, "%.6f\t%s\t%d\t%t\t%s\n", ev.Time, cause, ev.Iterations, ev.StatesChanged, strings.Join(vars, " "))
	}
	return w.Flush()
}

// exportRun rebuilds the export from the stored files.
func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	events, err := st.LoadEvents(runID)
	if err != nil {
		return err
	}

	result := &sim.Result{
		Model:           meta.Model,
		Instance:        meta.Instance,
		StateNames:      meta.StateNames,
		Times:           times,
		States:          make([]fmi.State, len(states)),
		Events:          events,
		StepsTaken:      meta.Steps,
		Terminated:      meta.Terminated,
		TerminateReason: meta.TerminateReason,
		FinalDiscrete:   meta.FinalDiscrete,
	}
	for i, s := range states {
		result.States[i] = s
	}
	info := storage.RunInfo{Integrator: meta.Integrator, Dt: meta.Dt, Duration: meta.Duration, Params: meta.Params}

	if svgFile != "" {
		if err := writeSVG(svgFile, result); err != nil {
			return err
		}
	}

	if outFile == "" {
		return storage.WriteJSON(os.Stdout, info, result)
	}
	if err := storage.ExportJSON(outFile, info, result); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outFile)
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSTATES\tINDICATORS\tDISCRETE\tDESCRIPTION")
	for _, info := range registry.ListModels() {
		desc := info.New(nil).Describe()
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			info.Name,
			strings.Join(desc.StateNames, ","),
			desc.NumIndicators,
			strings.Join(sortedKeys(desc.Discrete), ","),
			info.Summary,
		)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	modelNames := make([]string, 0, len(config.Presets))
	if len(args) == 1 {
		modelNames = append(modelNames, args[0])
	} else {
		for name := range config.Presets {
			modelNames = append(modelNames, name)
		}
		sort.Strings(modelNames)
	}

	for _, model := range modelNames {
		names := config.ListPresets(model)
		if names == nil {
			return fmt.Errorf("no presets for model %s", model)
		}
		fmt.Println(heading.Render(model))
		for _, name := range names {
			p := config.GetPreset(model, name)
			var kv []string
			for _, k := range sortedKeys(p.Params) {
				kv = append(kv, fmt.Sprintf("%s=%g", k, p.Params[k]))
			}
			fmt.Printf("  %-10s %s %s\n", name, muted.Render(fmt.Sprintf("dt=%g time=%g", p.Dt, p.Duration)), strings.Join(kv, " "))
		}
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if sweepParam == "" || len(sweepVals) == 0 {
		return fmt.Errorf("ensemble needs --sweep and --values")
	}

	exp, err := experiment.New(cfg, nil, newLogger())
	if err != nil {
		return err
	}

	sets := make([]map[string]float64, len(sweepVals))
	for i, v := range sweepVals {
		sets[i] = map[string]float64{sweepParam: v}
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, runErr := exp.Sweep(ctx, sets)
	fmt.Println(heading.Render(fmt.Sprintf("%s: %d runs in %v", cfg.Model, len(results), time.Since(start))))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tINSTANCE\tSTEPS\tEVENTS\tEND TIME\tEND\n", strings.ToUpper(sweepParam))
	for i, r := range results {
		if r == nil {
			fmt.Fprintf(w, "%g\t-\t-\t-\t-\tfailed\n", sweepVals[i])
			continue
		}
		end := "duration"
		if r.Terminated {
			end = r.TerminateReason
		}
		endTime := 0.0
		if n := len(r.Times); n > 0 {
			endTime = r.Times[n-1]
		}
		fmt.Fprintf(w, "%g\t%s\t%d\t%d\t%.6f\t%s\n", sweepVals[i], r.Instance, r.StepsTaken, len(r.Events), endTime, end)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func liveBuilder(base *config.Config) tui.Builder {
	return func(model string) (*sim.Master, sim.Config, error) {
		cfg := base.Clone()
		if cfg.Model != model {
			cfg = config.DefaultConfig()
			cfg.Model = model
		}
		exp, err := experiment.New(cfg, nil, nil)
		if err != nil {
			return nil, sim.Config{}, err
		}
		m, err := exp.Build(model, nil)
		if err != nil {
			return nil, sim.Config{}, err
		}
		return m, cfg.SimConfig(), nil
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	build := liveBuilder(cfg)
	if len(args) == 1 {
		return tui.RunModel(args[0], build)
	}
	return tui.Run(choices(), build)
}

func runMenu(cmd *cobra.Command, args []string) error {
	return tui.Run(choices(), liveBuilder(config.DefaultConfig()))
}

func choices() []tui.Choice {
	infos := experiment.NewRegistry().ListModels()
	out := make([]tui.Choice, len(infos))
	for i, info := range infos {
		out[i] = tui.Choice{Name: info.Name, Summary: info.Summary}
	}
	return out
}
