// Package compartmental turns a model into an ODE system. Every definition
// is compiled once; each derivative evaluation binds time and the current
// compartment values, then evaluates shortcuts, parameters, processes and
// finally the compartment derivatives, in that order.
package compartmental
