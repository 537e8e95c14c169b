package fmi

import "errors"

// Domain errors for component operations.
var (
	// ErrModeSequence indicates an operation that is illegal in the current mode.
	ErrModeSequence = errors.New("fmi: mode sequence violation")

	// ErrInvalidLength indicates a buffer whose length does not match the model.
	ErrInvalidLength = errors.New("fmi: buffer length does not match model dimension")

	// ErrNonConvergent indicates the event iteration hit its bound without a fixed point.
	ErrNonConvergent = errors.New("fmi: event iteration did not converge")

	// ErrUnknownVariable indicates a discrete variable that the model does not declare.
	ErrUnknownVariable = errors.New("fmi: unknown discrete variable")

	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("fmi: invalid state (NaN or Inf detected)")
)

// CallError wraps an error with the component call that produced it.
type CallError struct {
	Op       string
	Instance string
	Mode     Mode
	Time     float64
	Wrapped  error
}

func (e *CallError) Error() string {
	return e.Instance + ": " + e.Op + " (" + e.Mode.String() + "): " + e.Wrapped.Error()
}

func (e *CallError) Unwrap() error {
	return e.Wrapped
}
