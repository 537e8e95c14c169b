// Package event implements event indicator evaluation and the event
// iteration of an FMI model-exchange component.
//
// An [Evaluator] computes the indicator vector of a model as a pure
// function of the continuous state and the discrete context. [Crossings]
// compares two vectors sign by sign. A [Dispatcher] runs the fixed-point
// iteration that follows a zero crossing or a time event:
//
//	Idle -> Updating -> Evaluating -> Converged
//	             ^           |
//	             +-----------+  (new crossings)
//
// Updating or Evaluating move to Failed once the iteration bound is
// exceeded, and the episode reports [fmi.ErrNonConvergent].
package event
