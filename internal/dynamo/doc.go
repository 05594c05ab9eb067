// Package dynamo provides the numeric primitives shared by the integrators
// and the simulation task.
//
// The package defines the fundamental types for advancing an ordinary
// differential equation system dX/dt = f(X, t):
//
//   - [State]: vector of compartment values
//   - [System]: interface for ODE systems; evaluation may fail
//   - [Step]: outcome of one integrator advance
//   - [SimulationError]: failure with step, time and state context
//
// # Errors
//
// Derivative evaluation is fallible because the right-hand side is built
// from user expressions. A failing [System.Derive] is never retried or
// coerced to zero; integrators return the error unchanged and the caller
// aborts the run.
package dynamo
