package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/fmisim/internal/component"
	"github.com/san-kum/fmisim/internal/config"
	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/metrics"
	"github.com/san-kum/fmisim/internal/sim"
)

// Experiment turns a config into masters ready to run.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   fmi.Logger
}

func New(cfg *config.Config, registry *Registry, logger fmi.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = fmi.NopLogger
	}
	return &Experiment{cfg: cfg, registry: registry, logger: logger}, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Build instantiates a fresh component and master. params are applied on
// top of the configured model parameters.
func (e *Experiment) Build(instance string, params map[string]float64) (*sim.Master, error) {
	merged := make(map[string]float64, len(e.cfg.Params)+len(params))
	for k, v := range e.cfg.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}

	model, err := e.registry.GetModel(e.cfg.Model, merged)
	if err != nil {
		return nil, err
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}

	comp, err := component.New(model, instance,
		component.WithLogger(e.logger),
		component.WithMaxEventIterations(e.cfg.MaxEventIterations),
		component.WithDiscrete(e.cfg.Discrete),
	)
	if err != nil {
		return nil, err
	}
	m := sim.New(comp, integ)
	for _, metric := range metrics.Default() {
		m.AddMetric(metric)
	}
	return m, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	m, err := e.Build(e.cfg.Model, nil)
	if err != nil {
		return nil, err
	}
	return m.Run(ctx, e.cfg.SimConfig())
}

// Sweep runs one instance per parameter set concurrently.
func (e *Experiment) Sweep(ctx context.Context, sets []map[string]float64) ([]*sim.Result, error) {
	factory := func(idx int) (*sim.Master, error) {
		return e.Build(fmt.Sprintf("%s#%d", e.cfg.Model, idx), sets[idx])
	}
	return sim.NewEnsemble(factory, len(sets)).Run(ctx, e.cfg.SimConfig())
}
