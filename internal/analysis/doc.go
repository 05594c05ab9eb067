// Package analysis derives epidemic indicators from sampled runs.
//
//   - [Peaks]: height and time of each compartment's maximum
//   - [GrowthRate]: early exponential growth rate by log-linear fit
//   - [Crossing]: first time a trajectory crosses a threshold
//   - [NewPhasePortrait]: one compartment against another
//
// A growing outbreak has a positive growth rate; its doubling time is
//
//	rate, _ := analysis.GrowthRate(res, "I", 10)
//	doubling := math.Ln2 / rate
package analysis
