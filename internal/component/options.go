package component

import (
	"github.com/san-kum/fmisim/internal/event"
	"github.com/san-kum/fmisim/internal/fmi"
)

type settings struct {
	callbacks     fmi.Callbacks
	maxIterations int
	discrete      map[string]float64
}

func defaultSettings() settings {
	return settings{maxIterations: event.DefaultMaxIterations}
}

type Option func(*settings)

func WithLogger(l fmi.Logger) Option {
	return func(s *settings) { s.callbacks.Logger = l }
}

func WithCallbacks(cb fmi.Callbacks) Option {
	return func(s *settings) { s.callbacks = cb }
}

// WithMaxEventIterations sets the bound of the event iteration.
func WithMaxEventIterations(n int) Option {
	return func(s *settings) { s.maxIterations = n }
}

// WithDiscrete overrides start values of declared discrete variables.
func WithDiscrete(values map[string]float64) Option {
	return func(s *settings) { s.discrete = values }
}
