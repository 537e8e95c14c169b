package fmi

import (
	"errors"
	"fmt"
)

// Status is the result code reported to an FMI host for one call.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusDiscard
	StatusError
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarning:
		return "warning"
	case StatusDiscard:
		return "discard"
	case StatusError:
		return "error"
	case StatusFatal:
		return "fatal"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Kind classifies an error into the taxonomy hosts act on.
type Kind int

const (
	KindNone Kind = iota
	KindModeSequenceViolation
	KindInvalidLength
	KindNonConvergentEventChain
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindModeSequenceViolation:
		return "mode sequence violation"
	case KindInvalidLength:
		return "invalid length"
	case KindNonConvergentEventChain:
		return "non-convergent event chain"
	}
	return "other"
}

// KindOf returns the taxonomy entry for err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrModeSequence):
		return KindModeSequenceViolation
	case errors.Is(err, ErrInvalidLength):
		return KindInvalidLength
	case errors.Is(err, ErrNonConvergent):
		return KindNonConvergentEventChain
	}
	return KindOther
}

// StatusOf maps an error returned by a component call to the status a
// host would see. Sequencing and length mistakes are recoverable by the
// caller; a non-convergent event chain is fatal for the step.
func StatusOf(err error) Status {
	switch KindOf(err) {
	case KindNone:
		return StatusOK
	case KindModeSequenceViolation, KindInvalidLength:
		return StatusError
	case KindNonConvergentEventChain:
		return StatusFatal
	}
	return StatusError
}
