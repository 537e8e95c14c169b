package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fmisim/internal/sim"
)

const (
	DefaultDt                 = 0.01
	DefaultDuration           = 10.0
	DefaultMaxEventIterations = 8
	DefaultEventTolerance     = 1e-10
	DefaultTolerance          = 1e-6
	DefaultMaxEvents          = 10000
)

type Config struct {
	Model              string             `yaml:"model"`
	Integrator         string             `yaml:"integrator"`
	Dt                 float64            `yaml:"dt"`
	Duration           float64            `yaml:"duration"`
	Adaptive           bool               `yaml:"adaptive"`
	Tolerance          float64            `yaml:"tolerance"`
	MaxEventIterations int                `yaml:"max_event_iterations"`
	EventTolerance     float64            `yaml:"event_tolerance"`
	LocateEvents       bool               `yaml:"locate_events"`
	MaxEvents          int                `yaml:"max_events"`
	Params             map[string]float64 `yaml:"params,omitempty"`
	Discrete           map[string]float64 `yaml:"discrete,omitempty"`
	Log                LogConfig          `yaml:"log"`
}

type LogConfig struct {
	Level      string   `yaml:"level"`
	Categories []string `yaml:"categories,omitempty"`
	JSON       bool     `yaml:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:              "bouncing_ball",
		Integrator:         "rk4",
		Dt:                 DefaultDt,
		Duration:           DefaultDuration,
		Tolerance:          DefaultTolerance,
		MaxEventIterations: DefaultMaxEventIterations,
		EventTolerance:     DefaultEventTolerance,
		LocateEvents:       true,
		MaxEvents:          DefaultMaxEvents,
		Log:                LogConfig{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %g", c.Duration)
	}
	if c.MaxEventIterations < 1 {
		return fmt.Errorf("max_event_iterations must be at least 1, got %d", c.MaxEventIterations)
	}
	if c.LocateEvents && c.EventTolerance <= 0 {
		return fmt.Errorf("event_tolerance must be positive, got %g", c.EventTolerance)
	}
	if c.Adaptive && c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping, got %g", c.Tolerance)
	}
	return nil
}

// SimConfig converts the file settings into master settings.
func (c *Config) SimConfig() sim.Config {
	sc := sim.DefaultConfig()
	sc.Dt = c.Dt
	sc.Duration = c.Duration
	sc.Adaptive = c.Adaptive
	if c.Tolerance > 0 {
		sc.Tolerance = c.Tolerance
	}
	if c.Dt > sc.MaxDt {
		sc.MaxDt = c.Dt
	}
	sc.LocateEvents = c.LocateEvents
	if c.EventTolerance > 0 {
		sc.EventTolerance = c.EventTolerance
	}
	if c.MaxEvents > 0 {
		sc.MaxEvents = c.MaxEvents
	}
	return sc
}

// Clone returns a deep copy, so presets are never modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = copyMap(c.Params)
	out.Discrete = copyMap(c.Discrete)
	out.Log.Categories = append([]string(nil), c.Log.Categories...)
	return &out
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
