// Package analysis characterizes stored hybrid trajectories.
//
//   - [Spectrum]: power spectrum of one state on a uniform resampling
//   - [DominantFrequency]: strongest non-DC frequency, e.g. the limit cycle
//     of a switched system
//   - [EventIntervals]: statistics of the time between events per cause
//
// # Limit cycles
//
// A thermostat settles into a cycle whose frequency shows up both in the
// spectrum of its temperature and in the interval between switches:
//
//	f, _ := analysis.DominantFrequency(times, temps)
//	stats := analysis.EventIntervals(events)
//	// 1/f is close to twice stats["z0 falling"].Mean
package analysis
