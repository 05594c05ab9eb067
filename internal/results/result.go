// Package results collects sampled trajectories and derives plotted series
// from them.
package results

import (
	"fmt"
	"sync"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/expression"
)

// FunctionSpec is one plotted curve: an expression over the model's names.
type FunctionSpec struct {
	Expression string  `yaml:"expression" json:"expression"`
	Color      string  `yaml:"color,omitempty" json:"color,omitempty"`
	Width      float64 `yaml:"width,omitempty" json:"width,omitempty"`
}

// Snapshotter evaluates every model name at a state.
type Snapshotter interface {
	Snapshot(x dynamo.State, t float64) (map[string]float64, error)
}

// Result is a sample sink. It is safe for one writer and many readers.
type Result struct {
	Name      string
	Functions []FunctionSpec
	XLabel    string
	YLabel    string

	mu     sync.RWMutex
	labels []string
	times  []float64
	values [][]float64
}

func New(name string, labels []string) *Result {
	return &Result{
		Name:   name,
		XLabel: "t",
		YLabel: "population",
		labels: append([]string(nil), labels...),
	}
}

// AddFunction appends a curve.
func (r *Result) AddFunction(expr, color string, width float64) {
	r.Functions = append(r.Functions, FunctionSpec{Expression: expr, Color: color, Width: width})
}

func (r *Result) SetAxisLabels(x, y string) {
	r.XLabel, r.YLabel = x, y
}

func (r *Result) AppendSample(t float64, values []float64) error {
	if len(values) != len(r.labels) {
		return fmt.Errorf("sample at t=%g has %d values, expected %d", t, len(values), len(r.labels))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.times = append(r.times, t)
	r.values = append(r.values, append([]float64(nil), values...))
	return nil
}

func (r *Result) Labels() []string { return r.labels }

func (r *Result) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.times)
}

// Times returns a copy of the sample times.
func (r *Result) Times() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]float64(nil), r.times...)
}

// Sample returns the i-th sample.
func (r *Result) Sample(i int) (float64, []float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.times[i], r.values[i]
}

// Column returns the trajectory of one compartment.
func (r *Result) Column(label string) ([]float64, bool) {
	idx := -1
	for i, l := range r.labels {
		if l == label {
			idx = i
		}
	}
	if idx < 0 {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]float64, len(r.values))
	for i, v := range r.values {
		out[i] = v[idx]
	}
	return out, true
}

// Series evaluates fn at every sample. Without a snapshotter only the
// compartments and t are visible to the expression.
func (r *Result) Series(fn FunctionSpec, snap Snapshotter) ([]float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.times) == 0 {
		return nil, nil
	}

	ev := expression.NewEvaluator()
	bind := func(i int) error {
		if snap == nil {
			ev.Bind(expression.TimeVariable, r.times[i])
			for j, l := range r.labels {
				ev.Bind(l, r.values[i][j])
			}
			return nil
		}
		vals, err := snap.Snapshot(r.values[i], r.times[i])
		if err != nil {
			return err
		}
		for name, v := range vals {
			ev.Bind(name, v)
		}
		return nil
	}

	if err := bind(0); err != nil {
		return nil, err
	}
	prog, err := expression.CompileScope(fn.Expression, func(name string) bool {
		_, ok := ev.Value(name)
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", fn.Expression, err)
	}

	out := make([]float64, len(r.times))
	for i := range r.times {
		if i > 0 {
			if err := bind(i); err != nil {
				return nil, err
			}
		}
		if out[i], err = ev.Evaluate(prog); err != nil {
			return nil, fmt.Errorf("series %q at t=%g: %w", fn.Expression, r.times[i], err)
		}
	}
	return out, nil
}
