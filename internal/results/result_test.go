package results

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/expression"
)

func filled(t *testing.T) *Result {
	t.Helper()
	r := New("run", []string{"S", "I"})
	for i, v := range [][]float64{{90, 10}, {80, 20}, {75, 25}} {
		if err := r.AppendSample(float64(i), v); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func TestResult_Samples(t *testing.T) {
	r := filled(t)
	if r.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", r.Len())
	}
	if diff := cmp.Diff([]float64{0, 1, 2}, r.Times()); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	col, ok := r.Column("I")
	if !ok {
		t.Fatal("column I missing")
	}
	if diff := cmp.Diff([]float64{10, 20, 25}, col); diff != "" {
		t.Errorf("column mismatch (-want +got):\n%s", diff)
	}
	if _, ok := r.Column("R"); ok {
		t.Error("unexpected column R")
	}
	if err := r.AppendSample(3, []float64{1}); err == nil {
		t.Error("expected an error for a short sample")
	}
}

func TestResult_Series(t *testing.T) {
	r := filled(t)
	got, err := r.Series(FunctionSpec{Expression: "I/(S + I) + t"}, nil)
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if diff := cmp.Diff([]float64{0.1, 1.2, 2.25}, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	_, err = r.Series(FunctionSpec{Expression: "R"}, nil)
	var undef *expression.UndefinedReferenceError
	if !errors.As(err, &undef) {
		t.Errorf("expected UndefinedReferenceError, got %v", err)
	}
}

type fixedSnapshot struct{}

func (fixedSnapshot) Snapshot(x dynamo.State, t float64) (map[string]float64, error) {
	return map[string]float64{"t": t, "S": x[0], "I": x[1], "beta": 0.5}, nil
}

func TestResult_SeriesSnapshot(t *testing.T) {
	r := filled(t)
	got, err := r.Series(FunctionSpec{Expression: "beta*I"}, fixedSnapshot{})
	if err != nil {
		t.Fatalf("Series failed: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 10, 12.5}, got); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}
