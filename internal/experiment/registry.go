package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fmisim/internal/fmi"
	"github.com/san-kum/fmisim/internal/integrators"
	"github.com/san-kum/fmisim/internal/models"
)

type ModelFactory func(params map[string]float64) fmi.Model

type ModelInfo struct {
	Name    string
	Summary string
	New     ModelFactory
}

type Registry struct {
	models map[string]ModelInfo
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]ModelInfo)}

	r.Register("bouncing_ball", "state event with velocity reinit",
		func(p map[string]float64) fmi.Model { return models.NewBouncingBall(p) })
	r.Register("thermostat", "two indicators with hysteresis",
		func(p map[string]float64) fmi.Model { return models.NewThermostat(p) })
	r.Register("relay_cascade", "one crossing closing a second relay",
		func(p map[string]float64) fmi.Model { return models.NewRelayCascade(p) })
	r.Register("sampler", "periodic time events",
		func(p map[string]float64) fmi.Model { return models.NewSampler(p) })

	return r
}

func (r *Registry) Register(name, summary string, fn ModelFactory) {
	r.models[name] = ModelInfo{Name: name, Summary: summary, New: fn}
}

func (r *Registry) GetModel(name string, params map[string]float64) (fmi.Model, error) {
	info, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return info.New(params), nil
}

func (r *Registry) GetIntegrator(name string) (integrators.Integrator, error) {
	return integrators.New(name)
}

func (r *Registry) ListModels() []ModelInfo {
	out := make([]ModelInfo, 0, len(r.models))
	for _, info := range r.models {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
