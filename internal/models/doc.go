// Package models provides hybrid models exercising the event protocol.
//
// Each model implements [fmi.Model]:
//
//   - [BouncingBall]: state event with reinitialization of the velocity
//   - [Thermostat]: two indicators switching a heater with hysteresis
//   - [RelayCascade]: one crossing that closes a second relay in the same event
//   - [Sampler]: periodic time events plus a terminating state event
//
// Parameters are exposed as discrete variables, so they can be overridden
// at instantiation and changed in event mode.
package models

func param(params map[string]float64, name string, def float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return def
}
