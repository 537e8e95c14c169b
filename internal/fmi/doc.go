// Package fmi provides the core types of an FMI model-exchange component.
//
// The package defines the vocabulary shared by the event machinery and the
// master algorithm:
//
//   - [Mode]: the simulation mode of one component instance
//   - [Tracker]: validates mode transitions along the FMI lifecycle
//   - [Model]: derivative, indicator and discrete update functions of a model
//   - [Discrete]: discrete variables and parameters, writable only in event mode
//   - [Status]: FMI-style status codes derived from returned errors
//
// # Lifecycle
//
//	Instantiated -> InitializationMode -> ContinuousTimeMode <-> EventMode -> Terminated
//
// Reset returns any mode to Instantiated.
//
// # Thread Safety
//
// None of the types here are safe for concurrent mutation. One component
// instance is driven by one goroutine at a time.
package fmi
