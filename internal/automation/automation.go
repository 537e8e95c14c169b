package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fmisim/internal/config"
	"github.com/san-kum/fmisim/internal/experiment"
	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/sim"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Unset fields take the model preset when one is
// named, the defaults otherwise.
type ScenarioStep struct {
	Name   string `yaml:"name"`
	Preset string `yaml:"preset"`
	// Save asks the caller to store the result.
	Save          bool `yaml:"save"`
	config.Config `yaml:",inline"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Steps       []yaml.Node `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	scenario := &Scenario{Name: raw.Name, Description: raw.Description}
	for i, node := range raw.Steps {
		var head struct {
			Model  string `yaml:"model"`
			Preset string `yaml:"preset"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}

		step := ScenarioStep{Config: *config.DefaultConfig()}
		if head.Preset != "" {
			p := config.GetPreset(head.Model, head.Preset)
			if p == nil {
				return nil, fmt.Errorf("step %d: unknown preset %s for %s", i+1, head.Preset, head.Model)
			}
			step.Config = *p
		}
		if err := node.Decode(&step); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("%s-%d", step.Model, i+1)
		}
		scenario.Steps = append(scenario.Steps, step)
	}
	return scenario, nil
}

// StepResult pairs a step with its outcome. Err is set for steps that
// failed; later steps still run.
type StepResult struct {
	Step   ScenarioStep
	Result *sim.Result
	Err    error
}

// RunScenario executes all steps in order. It stops early only when ctx
// is canceled.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger fmi.Logger) ([]StepResult, error) {
	if registry == nil {
		registry = experiment.NewRegistry()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		cfg := step.Config
		exp, err := experiment.New(&cfg, registry, logger)
		if err != nil {
			results = append(results, StepResult{Step: step, Err: fmt.Errorf("step %d: %w", i+1, err)})
			continue
		}

		res, err := exp.Run(ctx)
		if err != nil {
			err = fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, StepResult{Step: step, Result: res, Err: err})
	}

	return results, nil
}

// MonteCarloConfig perturbs model parameters uniformly around their base
// values.
type MonteCarloConfig struct {
	Base         *config.Config
	Params       []string
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type MonteCarloResult struct {
	TrialID int
	Params  map[string]float64
	Result  *sim.Result
}

// RunMonteCarlo runs all trials concurrently. Trial parameters are drawn
// up front, so a seed reproduces the same set regardless of scheduling.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, registry *experiment.Registry, logger fmi.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("monte carlo needs at least one trial")
	}
	if registry == nil {
		registry = experiment.NewRegistry()
	}

	exp, err := experiment.New(cfg.Base, registry, logger)
	if err != nil {
		return nil, err
	}
	model, err := registry.GetModel(cfg.Base.Model, cfg.Base.Params)
	if err != nil {
		return nil, err
	}
	base := model.Describe().Discrete

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	sets := make([]map[string]float64, cfg.NumTrials)
	for trial := range sets {
		set := make(map[string]float64, len(cfg.Params))
		for _, name := range cfg.Params {
			v, ok := cfg.Base.Params[name]
			if !ok {
				if v, ok = base[name]; !ok {
					return nil, fmt.Errorf("%w: %s", fmi.ErrUnknownVariable, name)
				}
			}
			set[name] = v * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation)
		}
		sets[trial] = set
	}

	results, err := exp.Sweep(ctx, sets)
	out := make([]MonteCarloResult, len(sets))
	for i := range sets {
		out[i] = MonteCarloResult{TrialID: i, Params: sets[i], Result: results[i]}
	}
	return out, err
}

// MonteCarloStats counts trials that terminated on their own and those
// that ran to the end of the horizon.
func MonteCarloStats(results []MonteCarloResult) (terminated int, completed int) {
	for _, r := range results {
		switch {
		case r.Result == nil:
		case r.Result.Terminated:
			terminated++
		default:
			completed++
		}
	}
	return
}
