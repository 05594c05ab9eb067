package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Sum returns the total over all components, i.e. the population size.
func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

// MaxAbsDiff returns the infinity norm of s - other.
func (s State) MaxAbsDiff(other State) float64 {
	m := 0.0
	for i := range s {
		if i < len(other) {
			m = math.Max(m, math.Abs(s[i]-other[i]))
		}
	}
	return m
}

// System is an ODE right-hand side. Derive must not modify x.
type System interface {
	Derive(x State, t float64) (State, error)
	StateDim() int
}

// Labeled systems name their state components.
type Labeled interface {
	Labels() []string
}

// Step is the outcome of one accepted integrator advance.
type Step struct {
	State State
	// T is the time reached, Used the step actually taken.
	T    float64
	Used float64
	// Next is the step size suggested for the following advance. Fixed-step
	// methods return Used.
	Next        float64
	Rejected    int
	Evaluations int
}

type Observer interface {
	OnStep(x State, t float64)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}
