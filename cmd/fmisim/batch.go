package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/fmisim/internal/analysis"
	"github.com/san-kum/fmisim/internal/automation"
	"github.com/san-kum/fmisim/internal/experiment"
	"github.com/san-kum/fmisim/internal/export"
	"github.com/san-kum/fmisim/internal/optim"
	"github.com/san-kum/fmisim/internal/sim"
	"github.com/san-kum/fmisim/internal/storage"
)

func writeSVG(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.ResultSVG(f, result, export.DefaultSVGOptions()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return f.Close()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
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

	fmt.Println(heading.Render("analysis: " + meta.ID))

	if len(states) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATE\tDOMINANT FREQ\tPERIOD\tMAGNITUDE")
		for idx := range states[0] {
			series := make([]float64, len(states))
			for i := range states {
				series[i] = states[i][idx]
			}
			name := fmt.Sprintf("x%d", idx)
			if idx < len(meta.StateNames) {
				name = meta.StateNames[idx]
			}
			f, mag, err := analysis.DominantFrequency(times, series)
			if err != nil {
				fmt.Fprintf(w, "%s\t-\t-\t%s\n", name, err)
				continue
			}
			period := "-"
			if f > 0 {
				period = fmt.Sprintf("%.4fs", 1/f)
			}
			fmt.Fprintf(w, "%s\t%.4f Hz\t%s\t%.4g\n", name, f, period, mag)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	stats := analysis.EventIntervals(events)
	if len(stats) == 0 {
		fmt.Println("\nno events")
		return nil
	}
	causes := make([]string, 0, len(stats))
	for c := range stats {
		causes = append(causes, c)
	}
	sort.Strings(causes)

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAUSE\tINTERVALS\tMEAN\tMIN\tMAX")
	for _, c := range causes {
		s := stats[c]
		fmt.Fprintf(w, "%s\t%d\t%.6f\t%.6f\t%.6f\n", c, s.Count, s.Mean, s.Min, s.Max)
	}
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(heading.Render("scenario: " + scenario.Name))
	if scenario.Description != "" {
		fmt.Println(muted.Render(scenario.Description))
	}

	results, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), newLogger())

	st := storage.New(dataDir)
	failed := 0
	for i, r := range results {
		fmt.Printf("\n[%d/%d] %s (%s)\n", i+1, len(scenario.Steps), r.Step.Name, r.Step.Model)
		if r.Err != nil {
			failed++
			fmt.Println(failure.Render("  failed: " + r.Err.Error()))
		}
		if r.Result == nil {
			continue
		}
		fmt.Printf("  steps: %d  events: %d\n", r.Result.StepsTaken, len(r.Result.Events))
		if r.Result.Terminated {
			fmt.Printf("  terminated: %s\n", r.Result.TerminateReason)
		}
		if r.Step.Save {
			if initErr := st.Init(); initErr != nil {
				return initErr
			}
			cfg := r.Step.Config
			runID, saveErr := st.Save(runInfo(&cfg), r.Result)
			if saveErr != nil {
				return saveErr
			}
			fmt.Printf("  run id: %s\n", runID)
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps failed", failed, len(results))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	names := splitList(sweepParam)
	if len(names) == 0 {
		return fmt.Errorf("montecarlo needs --vary")
	}

	ctx, cancel := signalContext()
	defer cancel()

	mc := &automation.MonteCarloConfig{Base: cfg, Params: names, Perturbation: perturb, NumTrials: trials, Seed: seed}
	results, runErr := automation.RunMonteCarlo(ctx, mc, experiment.NewRegistry(), newLogger())
	if results == nil {
		return runErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TRIAL\t%s\tEVENTS\tEND\n", strings.ToUpper(strings.Join(names, "\t")))
	for _, r := range results {
		vals := make([]string, len(names))
		for i, n := range names {
			vals[i] = strconv.FormatFloat(r.Params[n], 'g', 6, 64)
		}
		end, events := "failed", "-"
		if r.Result != nil {
			events = strconv.Itoa(len(r.Result.Events))
			end = "duration"
			if r.Result.Terminated {
				end = r.Result.TerminateReason
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.TrialID, strings.Join(vals, "\t"), events, end)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	terminated, completed := automation.MonteCarloStats(results)
	fmt.Printf("\nterminated: %d  ran to end: %d  failed: %d\n", terminated, completed, len(results)-terminated-completed)
	return runErr
}

func parseGrid(in map[string]string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	ranges := make([][]float64, len(names))
	for i, name := range names {
		for _, v := range strings.Split(in[name], ";") {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			ranges[i] = append(ranges[i], f)
		}
	}
	return names, ranges, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	if maximize {
		g.Maximize()
	}

	exp, err := experiment.New(cfg, nil, newLogger())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, val, evals, err := g.Search(ctx, exp, metricName)
	for _, ev := range evals {
		parts := make([]string, 0, len(names))
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s=%g", n, ev.Params[n]))
		}
		if ev.Err != nil {
			fmt.Printf("  %s  %s\n", strings.Join(parts, " "), failure.Render("failed"))
			continue
		}
		fmt.Printf("  %s  %s=%g\n", strings.Join(parts, " "), metricName, ev.Value)
	}
	if err != nil {
		return err
	}

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", n, best[n]))
	}
	fmt.Println(heading.Render(fmt.Sprintf("best: %s (%s=%g)", strings.Join(parts, " "), metricName, val)))
	return nil
}
