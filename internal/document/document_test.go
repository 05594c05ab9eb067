package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"github.com/san-kum/episim/internal/expression"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/results"
)

func buildModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New("town", 1000,
		model.DivisionSpec{Name: "Health", Categories: []model.CategorySpec{
			{Name: "S", Description: "susceptible"}, {Name: "I"}, {Name: "R"},
		}},
		model.Div("Age", "young", "old"),
	)
	if err != nil {
		t.Fatal(err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(m.SetCompartmentValue("S_young", 590))
	must(m.SetCompartmentValue("S_old", 400))
	must(m.SetCompartmentValue("I_young", 10))
	_, err = m.AddParameter("N", "population", "S_young+S_old+I_young+I_old+R_young+R_old")
	must(err)
	_, err = m.AddParameter("beta", "contact rate", "0.3")
	must(err)
	_, err = m.AddProcess("infection", "new cases",
		model.TimeSegment{Start: 0, Definition: "beta*(I_young+I_old)/N"},
		model.TimeSegment{Start: 30, Definition: "0.5*beta*(I_young+I_old)/N"},
	)
	must(err)
	must(m.SetCompartmentDefinition("S_young", "-infection*S_young"))
	must(m.SetCompartmentDefinition("I_young", "infection*S_young - 0.1*I_young"))
	must(m.SetCompartmentDefinition("R_young", "0.1*I_young"))
	return m
}

func TestRoundTrip(t *testing.T) {
	m := buildModel(t)
	res := results.New("infected", m.CompartmentNames())
	res.AddFunction("I_young+I_old", "red", 2)
	res.SetAxisLabels("days", "people")

	doc := FromModel(m, res)
	data, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	rebuilt, err := parsed.Model()
	if err != nil {
		t.Fatalf("rebuilding model: %v", err)
	}

	if diff := cmp.Diff(doc, FromModel(rebuilt, parsed.NewResults(rebuilt.CompartmentNames())...)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if err := rebuilt.Validate(); err != nil {
		t.Errorf("rebuilt model should validate: %v", err)
	}
	if deps, _ := rebuilt.Dependents("N"); len(deps.Processes) != 1 {
		t.Errorf("expected infection to depend on N, got %+v", deps)
	}
}

func TestSaveLoad(t *testing.T) {
	fs := memoryfs.New()
	m := buildModel(t)

	if err := Save("/models/town.yaml", FromModel(m), fs); err != nil {
		t.Fatal(err)
	}
	loaded, doc, err := LoadModel("/models/town.yaml", fs)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != Version {
		t.Errorf("version = %d, want %d", doc.Version, Version)
	}
	if got := loaded.CompartmentNames(); len(got) != 6 {
		t.Errorf("expected 6 compartments, got %v", got)
	}
	c, _ := loaded.Compartment("S_old")
	if c.Value != 400 {
		t.Errorf("S_old = %g, want 400", c.Value)
	}
	if _, _, err := LoadModel("/models/missing.yaml", fs); err == nil {
		t.Error("expected error for a missing document")
	}
}

func TestModel_InvalidDefinition(t *testing.T) {
	doc := &Document{
		Version:   Version,
		Name:      "broken",
		Habitants: 10,
		Divisions: []Division{{Name: "Health", Categories: []Category{{Name: "S"}, {Name: "I"}}}},
		Parameters: []Parameter{
			{Name: "a", Definition: "b*2"},
			{Name: "b", Definition: "1"},
		},
	}
	_, err := doc.Model()
	var undefined *expression.UndefinedReferenceError
	if !errors.As(err, &undefined) {
		t.Fatalf("expected an undefined reference, got %v", err)
	}
	if !strings.Contains(err.Error(), `parameter "a"`) {
		t.Errorf("error should name the parameter: %v", err)
	}
}

func TestUnmarshal_Version(t *testing.T) {
	if _, err := Unmarshal([]byte("version: 99\nname: x\n")); err == nil {
		t.Error("expected error for a newer document version")
	}
	if _, err := Unmarshal([]byte("name: [")); err == nil {
		t.Error("expected YAML error")
	}
}
