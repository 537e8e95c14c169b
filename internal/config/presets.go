package config

import "sort"

func preset(model string, dt, duration float64, params map[string]float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	cfg.Dt = dt
	cfg.Duration = duration
	cfg.Params = params
	return cfg
}

// Presets keep the default rk4 integrator. Forward Euler adds energy on
// every flight, and a bouncing_ball run with it can settle into a fixed
// bounce cycle instead of coming to rest.
var Presets = map[string]map[string]*Config{
	"bouncing_ball": {
		"drop":   preset("bouncing_ball", 0.01, 10.0, map[string]float64{"h0": 1.0, "e": 0.8}),
		"high":   preset("bouncing_ball", 0.01, 40.0, map[string]float64{"h0": 10.0, "e": 0.9}),
		"toss":   preset("bouncing_ball", 0.01, 10.0, map[string]float64{"h0": 0.5, "v0": 4.0, "e": 0.7}),
		"damped": preset("bouncing_ball", 0.01, 5.0, map[string]float64{"h0": 2.0, "e": 0.4, "v_min": 0.5}),
	},
	"thermostat": {
		"room":   preset("thermostat", 0.05, 120.0, nil),
		"narrow": preset("thermostat", 0.01, 60.0, map[string]float64{"t_low": 19.5, "t_high": 20.5}),
		"cold":   preset("thermostat", 0.05, 200.0, map[string]float64{"t0": 5.0}),
	},
	"relay_cascade": {
		"default": preset("relay_cascade", 0.01, 2.0, nil),
		"slow":    preset("relay_cascade", 0.01, 10.0, map[string]float64{"rate": 0.2}),
	},
	"sampler": {
		"default": preset("sampler", 0.01, 10.0, nil),
		"fast":    preset("sampler", 0.01, 5.0, map[string]float64{"period": 0.1, "limit": 50}),
	},
}

// GetPreset returns a copy of the named preset or nil.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
