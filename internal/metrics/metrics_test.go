package metrics

import (
	"bytes"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/sim"
)

func TestPopulationDrift(t *testing.T) {
	m := NewPopulationDrift()

	m.Observe(dynamo.State{900, 100}, 0)
	m.Observe(dynamo.State{850, 150}, 1)
	if m.Value() != 0 {
		t.Errorf("expected no drift, got %g", m.Value())
	}

	m.Observe(dynamo.State{850, 160}, 2)
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("expected drift 0.01, got %g", m.Value())
	}
	m.Observe(dynamo.State{850, 150}, 3)
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("drift should keep its maximum, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestNegativeExcursion(t *testing.T) {
	m := NewNegativeExcursion()
	m.Reset()

	m.Observe(dynamo.State{1, 2}, 0)
	m.Observe(dynamo.State{-0.5, 2}, 1)
	m.Observe(dynamo.State{-0.2, -3}, 2)
	m.Observe(dynamo.State{1, 1}, 3)

	if m.Value() != 3 {
		t.Errorf("expected worst excursion 3, got %g", m.Value())
	}
	if m.At() != 2 {
		t.Errorf("expected worst excursion at t=2, got %g", m.At())
	}
	if m.Fraction() != 0.5 {
		t.Errorf("expected fraction 0.5, got %g", m.Fraction())
	}
}

func TestPlausibility(t *testing.T) {
	tests := []struct {
		name   string
		states []dynamo.State
		want   float64
		first  float64
	}{
		{"no samples", nil, 1, math.NaN()},
		{"bounded", []dynamo.State{{1, 9}, {3, 7}}, 1, math.NaN()},
		{"above population", []dynamo.State{{1, 2}, {11, 0}}, 0.5, 1},
		{"negative", []dynamo.State{{-1, 11}, {-20, 30}}, 0, 0},
		{"within slack", []dynamo.State{{-1e-7, 10}}, 1, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPlausibility(10)
			for i, x := range tt.states {
				m.Observe(x, float64(i))
			}
			if got := m.Value(); got != tt.want {
				t.Errorf("Value() = %g, want %g", got, tt.want)
			}
			got := m.FirstViolation()
			if math.IsNaN(tt.first) != math.IsNaN(got) || (!math.IsNaN(got) && got != tt.first) {
				t.Errorf("FirstViolation() = %g, want %g", got, tt.first)
			}
		})
	}
}

func TestCollectors(t *testing.T) {
	c := NewCollectors()
	c.Record("rk4", &sim.Summary{Status: sim.Completed, Steps: 100, Evaluations: 400, FinalTime: 10})
	c.Record("rkf45", &sim.Summary{Status: sim.Cancelled, Steps: 7, Rejected: 2, Evaluations: 54, FinalTime: 3})
	c.Record("rk4", &sim.Summary{Status: sim.Completed, Steps: 50, Evaluations: 200, FinalTime: 5})

	if got := testutil.ToFloat64(c.runs.WithLabelValues("rk4", "completed")); got != 2 {
		t.Errorf("completed rk4 runs = %g, want 2", got)
	}
	if got := testutil.ToFloat64(c.steps.WithLabelValues("rk4")); got != 150 {
		t.Errorf("rk4 steps = %g, want 150", got)
	}
	if got := testutil.ToFloat64(c.rejected.WithLabelValues("rkf45")); got != 2 {
		t.Errorf("rkf45 rejected = %g, want 2", got)
	}

	var buf bytes.Buffer
	if err := c.WriteText(&buf); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`episim_runs_total{method="rkf45",status="cancelled"} 1`)) {
		t.Errorf("text output misses the cancelled run:\n%s", buf.String())
	}
}
