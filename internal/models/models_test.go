package models

import (
	"math"
	"testing"

	"github.com/san-kum/episim/internal/compartmental"
	"github.com/san-kum/episim/internal/dynamo"
)

func TestExamplesValidate(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, err := Get(name)
			if err != nil {
				t.Fatalf("building %s: %v", name, err)
			}
			if err := m.Validate(); err != nil {
				t.Fatalf("%s does not validate: %v", name, err)
			}
			if len(m.Dangling()) != 0 {
				t.Errorf("unexpected dangling references: %v", m.Dangling())
			}
		})
	}
}

func TestExamplesConserve(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, _ := Get(name)
			sys, err := compartmental.New(m)
			if err != nil {
				t.Fatal(err)
			}
			dx, err := sys.Derive(dynamo.State(m.InitialState()), 0)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(dx.Sum()) > 1e-9 {
				t.Errorf("derivatives should sum to zero, got %g", dx.Sum())
			}
		})
	}
}

func TestSIRInitialGrowth(t *testing.T) {
	m, _ := NewSIR()
	sys, _ := compartmental.New(m)

	dx, err := sys.Derive(dynamo.State(m.InitialState()), 0)
	if err != nil {
		t.Fatal(err)
	}
	// beta*S*I/N - gamma*I = 0.3*990*10/1000 - 1
	expected := 0.3*990*10/1000 - 1
	if math.Abs(dx[1]-expected) > 1e-12 {
		t.Errorf("dI/dt = %g, want %g", dx[1], expected)
	}
}

func TestSEIRLockdown(t *testing.T) {
	m, _ := NewSEIR()
	sys, _ := compartmental.New(m)
	x := dynamo.State(m.InitialState())

	before, _ := sys.Derive(x, 39)
	after, _ := sys.Derive(x, 40)
	if math.Abs(after[0]-before[0]/2) > 1e-9 {
		t.Errorf("infections should halve on day 40: %g -> %g", before[0], after[0])
	}
}

func TestAgeSIRShortcuts(t *testing.T) {
	m, _ := NewAgeSIR()

	if got := len(m.Compartments()); got != 6 {
		t.Fatalf("expected 6 compartments, got %d", got)
	}
	young := m.ShortcutCompartments("young")
	if len(young) != 3 {
		t.Errorf("expected young to cover 3 compartments, got %v", young)
	}
}

func TestGetUnknown(t *testing.T) {
	if _, err := Get("ebola"); err == nil {
		t.Error("expected error for unknown model")
	}
}
