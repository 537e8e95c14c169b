package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	duration   float64
	integrator string
	maxIter    int
	eventTol   float64
	noLocate   bool
	adaptive   bool
	tolerance  float64
	params     map[string]string
	discrete   map[string]string
	logLevel   string
	logJSON    bool
	logCats    []string
	noSave     bool
	outFile    string
	sweepParam string
	sweepVals  []float64
	plotHeight int
	svgFile    string
	trials     int
	perturb    float64
	seed       int64
	grid       map[string]string
	metricName string
	maximize   bool
)

// simFlags registers the flags shared by commands that build a simulation.
func simFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", 0.01, "timestep")
	f.Float64Var(&duration, "time", 10.0, "duration")
	f.StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, rk45)")
	f.IntVar(&maxIter, "max-iter", 8, "event iteration bound")
	f.Float64Var(&eventTol, "event-tol", 1e-10, "event location tolerance")
	f.BoolVar(&noLocate, "no-locate", false, "handle events at step ends without bisection")
	f.BoolVar(&adaptive, "adaptive", false, "adaptive step size (rk45)")
	f.Float64Var(&tolerance, "tol", 1e-6, "adaptive step tolerance")
	f.StringToStringVar(&params, "param", nil, "model parameter name=value")
	f.StringToStringVar(&discrete, "set", nil, "discrete variable start value name=value")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "fmisim",
		Short: "model-exchange event mode simulation lab",
		RunE:  runMenu,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".fmisim", "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&logJSON, "log-json", false, "log as json lines")
	pf.StringSliceVar(&logCats, "log-cat", nil, "log categories (logEvents, logModes, logStatusError, logStatusWarning, logAll)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	simFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run states",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	eventsCmd := &cobra.Command{
		Use:   "events [run_id]",
		Short: "show the event log of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showEvents,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout when empty)")
	exportCmd.Flags().StringVar(&svgFile, "svg", "", "also write an svg plot of the states")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum and event interval analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [model]",
		Short: "run trials with randomly perturbed parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	simFlags(monteCarloCmd)
	monteCarloCmd.Flags().StringVar(&sweepParam, "vary", "", "comma separated parameters to perturb")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturb, "perturb", 0.1, "relative perturbation")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")

	searchCmd := &cobra.Command{
		Use:   "search [model]",
		Short: "grid search parameters for the best run metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSearch,
	}
	simFlags(searchCmd)
	searchCmd.Flags().StringToStringVar(&grid, "grid", nil, "parameter values name=v1;v2;v3")
	searchCmd.Flags().StringVar(&metricName, "metric", "events", "metric to optimize")
	searchCmd.Flags().BoolVar(&maximize, "max", false, "maximize instead of minimize")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list models",
		RunE:  listModels,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "run a parameter sweep concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	simFlags(ensembleCmd)
	ensembleCmd.Flags().StringVar(&sweepParam, "sweep", "", "parameter to vary")
	ensembleCmd.Flags().Float64SliceVar(&sweepVals, "values", nil, "values of the swept parameter")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run simulation in the live view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	simFlags(liveCmd)

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, eventsCmd, exportCmd, modelsCmd, presetsCmd,
		ensembleCmd, liveCmd, analyzeCmd, scenarioCmd, monteCarloCmd, searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
