// Package logging adapts zerolog to the component logging callback.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/fmisim/internal/fmi"
)

type Options struct {
	Level      string
	Categories []string
	JSON       bool
}

// Logger implements fmi.Logger on top of a zerolog.Logger. Messages in
// categories that are not enabled are dropped; errors are always kept.
// OK records log at debug level, or at info when their category was
// selected explicitly.
type Logger struct {
	log        zerolog.Logger
	categories map[string]bool
}

func New(w io.Writer, opts Options) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	out := w
	if !opts.JSON {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	l := &Logger{
		log:        zerolog.New(out).Level(level).With().Timestamp().Logger(),
		categories: make(map[string]bool),
	}
	for _, c := range opts.Categories {
		l.categories[c] = true
	}
	return l
}

// Zerolog exposes the underlying logger for host-side messages.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.log }

func (l *Logger) enabled(severity fmi.Status, category string) bool {
	if severity >= fmi.StatusError {
		return true
	}
	if len(l.categories) == 0 || l.categories[fmi.LogAll] {
		return true
	}
	return l.categories[category]
}

func (l *Logger) selected(category string) bool {
	return l.categories[category] || l.categories[fmi.LogAll]
}

func (l *Logger) Log(severity fmi.Status, category, instance, message string) {
	if !l.enabled(severity, category) {
		return
	}
	level := levelFor(severity)
	if severity == fmi.StatusOK && l.selected(category) {
		level = zerolog.InfoLevel
	}
	l.log.WithLevel(level).
		Str("instance", instance).
		Str("category", category).
		Str("status", severity.String()).
		Msg(message)
}

func levelFor(s fmi.Status) zerolog.Level {
	switch s {
	case fmi.StatusOK:
		return zerolog.DebugLevel
	case fmi.StatusWarning, fmi.StatusDiscard:
		return zerolog.WarnLevel
	case fmi.StatusError:
		return zerolog.ErrorLevel
	}
	return zerolog.ErrorLevel
}
