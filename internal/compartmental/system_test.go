package compartmental

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/expression"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/model"
)

func healthModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("town", 1000, model.Div("Health", "Healthy", "Sick"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := m.SetCompartmentDefinition("Healthy", "-0.01*Healthy"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetCompartmentDefinition("Sick", "0.01*Healthy"); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestHealth_ConservesPopulation(t *testing.T) {
	for _, method := range integrators.Methods() {
		t.Run(method.String(), func(t *testing.T) {
			sys, err := New(healthModel(t))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			in := integrators.New(method, integrators.DefaultOptions())
			x, now, dt := dynamo.State{1000, 0}, 0.0, 0.5
			for now < 50-1e-12 {
				step, err := in.Advance(sys, x, now, math.Min(dt, 50-now))
				if err != nil {
					t.Fatalf("advance at t=%g: %v", now, err)
				}
				x, now = step.State, step.T
				if method.Adaptive() {
					dt = step.Next
				}
				if math.Abs(x.Sum()-1000) > 1e-9 {
					t.Fatalf("t=%g: total %v, want 1000", now, x.Sum())
				}
			}
			want := 1000 * math.Exp(-0.5)
			if math.Abs(x[0]-want) > 1 {
				t.Errorf("Healthy(50) = %v, want about %v", x[0], want)
			}
		})
	}
}

func TestDerive_Order(t *testing.T) {
	g := NewWithT(t)
	m, err := model.New("city", 100, model.Div("Health", "S", "I"), model.Div("Age", "young", "old"))
	g.Expect(err).NotTo(HaveOccurred())

	_, err = m.AddParameter("N", "", "young + old")
	g.Expect(err).NotTo(HaveOccurred())
	_, err = m.AddParameter("beta", "", "0.5")
	g.Expect(err).NotTo(HaveOccurred())
	_, err = m.AddProcess("force", "", model.TimeSegment{Definition: "beta*(I_young + I_old)/N"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m.SetCompartmentDefinition("S_young", "-force*S_young")).To(Succeed())
	g.Expect(m.SetCompartmentDefinition("I_young", "force*S_young")).To(Succeed())
	g.Expect(m.SetCompartmentValue("S_young", 40)).To(Succeed())
	g.Expect(m.SetCompartmentValue("S_old", 40)).To(Succeed())
	g.Expect(m.SetCompartmentValue("I_young", 10)).To(Succeed())
	g.Expect(m.SetCompartmentValue("I_old", 10)).To(Succeed())

	sys, err := New(m)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sys.Labels()).To(Equal([]string{"S_young", "S_old", "I_young", "I_old"}))

	x := dynamo.State(m.InitialState())
	dx, err := sys.Derive(x, 0)
	g.Expect(err).NotTo(HaveOccurred())
	// force = 0.5*20/100 = 0.1
	g.Expect(dx[0]).To(BeNumerically("~", -4, 1e-12))
	g.Expect(dx[1]).To(Equal(0.0))
	g.Expect(dx[2]).To(BeNumerically("~", 4, 1e-12))
	g.Expect(dx[3]).To(Equal(0.0))

	snap, err := sys.Snapshot(x, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(snap).To(HaveKeyWithValue("young", 50.0))
	g.Expect(snap).To(HaveKeyWithValue("N", 100.0))
	g.Expect(snap["force"]).To(BeNumerically("~", 0.1, 1e-12))
	g.Expect(snap).To(HaveKeyWithValue("t", 0.0))
}

func TestDerive_TimeSegments(t *testing.T) {
	g := NewWithT(t)
	m := healthModel(t)
	_, err := m.AddProcess("vaccination", "",
		model.TimeSegment{Start: 5, Definition: "2"},
		model.TimeSegment{Start: 10, Definition: "0.5*t"},
	)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m.SetCompartmentDefinition("Sick", "vaccination")).To(Succeed())

	sys, err := New(m)
	g.Expect(err).NotTo(HaveOccurred())

	tests := []struct {
		t    float64
		want float64
	}{
		{0, 0},
		{4.99, 0},
		{5, 2},
		{9, 2},
		{10, 5},
		{12, 6},
	}
	for _, tt := range tests {
		dx, err := sys.Derive(dynamo.State{1000, 0}, tt.t)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(dx[1]).To(BeNumerically("~", tt.want, 1e-12), "t=%g", tt.t)
	}
}

func TestDerive_EvaluationError(t *testing.T) {
	g := NewWithT(t)
	m := healthModel(t)
	_, err := m.AddParameter("odds", "", "Healthy/Sick")
	g.Expect(err).NotTo(HaveOccurred())

	sys, err := New(m)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = sys.Derive(dynamo.State{1000, 0}, 3)
	var simErr *dynamo.SimulationError
	g.Expect(errors.As(err, &simErr)).To(BeTrue())
	g.Expect(simErr.Time).To(Equal(3.0))
	g.Expect(simErr.Error()).To(ContainSubstring("odds"))
	var evalErr *expression.EvaluationError
	g.Expect(errors.As(err, &evalErr)).To(BeTrue())

	_, err = sys.Derive(dynamo.State{1000, 10}, 3)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = sys.Derive(dynamo.State{1000}, 3)
	g.Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
}

func TestNew_RequiresValidModel(t *testing.T) {
	g := NewWithT(t)
	m := healthModel(t)
	g.Expect(m.SetCompartmentValue("Sick", 5)).To(Succeed())

	_, err := New(m)
	g.Expect(err).To(MatchError(model.ErrPopulation))
}

func BenchmarkDerive(b *testing.B) {
	m, _ := model.New("city", 1000, model.Div("Health", "S", "I", "R"), model.Div("Age", "young", "old"))
	_, _ = m.AddParameter("beta", "", "0.3")
	_, _ = m.AddParameter("gamma", "", "0.1")
	_, _ = m.AddProcess("force", "", model.TimeSegment{Definition: "beta*(I_young + I_old)/1000"})
	for _, age := range []string{"young", "old"} {
		_ = m.SetCompartmentDefinition("S_"+age, "-force*S_"+age)
		_ = m.SetCompartmentDefinition("I_"+age, "force*S_"+age+" - gamma*I_"+age)
		_ = m.SetCompartmentDefinition("R_"+age, "gamma*I_"+age)
	}
	sys, err := New(m)
	if err != nil {
		b.Fatal(err)
	}
	x := dynamo.State(m.InitialState())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = sys.Derive(x, float64(i))
	}
}
