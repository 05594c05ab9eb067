package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/episim/internal/dynamo"
)

// decay is dC/dt = -k*C.
type decay struct {
	k     float64
	calls int
}

func (d *decay) StateDim() int { return 1 }

func (d *decay) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	d.calls++
	return dynamo.State{-d.k * x[0]}, nil
}

type failing struct{ after int }

var errBoom = errors.New("boom")

func (f *failing) StateDim() int { return 1 }

func (f *failing) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	if f.after <= 0 {
		return nil, errBoom
	}
	f.after--
	return dynamo.State{0}, nil
}

// integrate advances to horizon, clipping the last step.
func integrate(t *testing.T, in *Integrator, sys dynamo.System, x0 dynamo.State, horizon, dt float64) (dynamo.State, int) {
	t.Helper()
	x, now, steps := x0.Clone(), 0.0, 0
	for now < horizon-1e-12 {
		h := math.Min(dt, horizon-now)
		step, err := in.Advance(sys, x, now, h)
		if err != nil {
			t.Fatalf("%s: advance at t=%g failed: %v", in.Method(), now, err)
		}
		x, now = step.State, step.T
		if in.Method().Adaptive() {
			dt = step.Next
		}
		steps++
	}
	return x, steps
}

func globalError(t *testing.T, m Method, dt float64) float64 {
	sys := &decay{k: 1}
	x, _ := integrate(t, New(m, DefaultOptions()), sys, dynamo.State{1}, 1, dt)
	return math.Abs(x[0] - math.Exp(-1))
}

func TestConvergenceOrder(t *testing.T) {
	tests := []struct {
		method   Method
		ratio    float64
		min, max float64
	}{
		{Euler, 2, 1.8, 2.2},
		{Heun, 4, 3.6, 4.4},
		{EulerPC, 4, 3.6, 4.4},
		{RK4, 16, 14, 18},
	}

	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			coarse := globalError(t, tt.method, 0.1)
			fine := globalError(t, tt.method, 0.05)
			ratio := coarse / fine
			if ratio < tt.min || ratio > tt.max {
				t.Errorf("error ratio %.3f outside [%g, %g] (coarse %.3e, fine %.3e)", ratio, tt.min, tt.max, coarse, fine)
			}
		})
	}
}

func TestEvaluationsPerStep(t *testing.T) {
	for _, m := range []Method{Euler, Heun, RK4, EulerPC} {
		sys := &decay{k: 1}
		step, err := New(m, DefaultOptions()).Advance(sys, dynamo.State{1}, 0, 0.1)
		if err != nil {
			t.Fatal(err)
		}
		if sys.calls != m.Evaluations() || step.Evaluations != m.Evaluations() {
			t.Errorf("%s: %d derive calls, step reports %d, want %d", m, sys.calls, step.Evaluations, m.Evaluations())
		}
		if step.Used != 0.1 || step.Next != 0.1 || math.Abs(step.T-0.1) > 1e-15 {
			t.Errorf("%s: unexpected step bookkeeping %+v", m, step)
		}
	}
}

func TestAdvanceDoesNotModifyInput(t *testing.T) {
	for _, m := range Methods() {
		x := dynamo.State{1}
		if _, err := New(m, DefaultOptions()).Advance(&decay{k: 1}, x, 0, 0.1); err != nil {
			t.Fatal(err)
		}
		if x[0] != 1 {
			t.Errorf("%s modified its input state", m)
		}
	}
}

func TestDeriveErrorIsReturned(t *testing.T) {
	for _, m := range Methods() {
		for after := 0; after < m.Evaluations(); after++ {
			_, err := New(m, DefaultOptions()).Advance(&failing{after: after}, dynamo.State{1}, 0, 0.1)
			if !errors.Is(err, errBoom) {
				t.Errorf("%s failing after %d evaluations: got %v", m, after, err)
			}
		}
	}
}

func TestNegativeValuesAreNotClamped(t *testing.T) {
	// dt*k > 1 overshoots below zero with Euler.
	step, err := New(Euler, DefaultOptions()).Advance(&decay{k: 3}, dynamo.State{1}, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if step.State[0] != -0.5 {
		t.Errorf("expected -0.5, got %v", step.State[0])
	}
}

func TestAdvanceRejectsBadInput(t *testing.T) {
	in := New(RK4, DefaultOptions())
	if _, err := in.Advance(&decay{k: 1}, dynamo.State{1, 2}, 0, 0.1); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
	if _, err := in.Advance(&decay{k: 1}, dynamo.State{1}, 0, 0); err == nil {
		t.Error("expected error for zero dt")
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v", m.String(), got, err)
		}
	}
	if m, err := ParseMethod("RK2"); err != nil || m != Heun {
		t.Errorf("alias rk2: %v, %v", m, err)
	}
	if _, err := ParseMethod("verlet"); err == nil {
		t.Error("expected error for unknown method")
	}
}
