package fmi

// Log categories understood by the runtime.
const (
	LogEvents        = "logEvents"
	LogModes         = "logModes"
	LogStatusWarning = "logStatusWarning"
	LogStatusError   = "logStatusError"
	LogAll           = "logAll"
)

// Logger receives pre-formatted messages from a component.
type Logger interface {
	Log(severity Status, category, instance, message string)
}

type LoggerFunc func(severity Status, category, instance, message string)

func (f LoggerFunc) Log(severity Status, category, instance, message string) {
	f(severity, category, instance, message)
}

type nopLogger struct{}

func (nopLogger) Log(Status, string, string, string) {}

// NopLogger discards everything.
var NopLogger Logger = nopLogger{}

// Callbacks are supplied by the host at instantiation and kept for the
// lifetime of the component.
type Callbacks struct {
	Logger       Logger
	StepFinished func(instance string, status Status)
}

func (c Callbacks) logger() Logger {
	if c.Logger == nil {
		return NopLogger
	}
	return c.Logger
}

// Log forwards to the configured logger, if any.
func (c Callbacks) Log(severity Status, category, instance, message string) {
	c.logger().Log(severity, category, instance, message)
}
