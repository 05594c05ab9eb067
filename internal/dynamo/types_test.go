package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"negative", State{-1.0, 2.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_CloneIndependent(t *testing.T) {
	a := State{1, 2}
	c := a.Clone()
	c[0] = 99
	if a[0] != 1 {
		t.Error("Clone shares storage with the original")
	}
}

func TestState_SumAndDiff(t *testing.T) {
	a := State{990, 10, 0}
	b := State{985, 12.5, 2.5}
	if a.Sum() != 1000 || b.Sum() != 1000 {
		t.Errorf("Sum() = %g, %g, want 1000", a.Sum(), b.Sum())
	}
	if d := a.MaxAbsDiff(b); d != 5 {
		t.Errorf("MaxAbsDiff() = %g, want 5", d)
	}
	if d := a.MaxAbsDiff(State{990}); d != 0 {
		t.Errorf("MaxAbsDiff() over the shorter state = %g, want 0", d)
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.5, Wrapped: ErrNonConvergence}
	if !errors.Is(err, ErrNonConvergence) {
		t.Error("SimulationError does not unwrap to its cause")
	}
	if err.Error() != "step 3 (t=0.5): dynamo: adaptive step did not converge" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
