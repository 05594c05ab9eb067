// Package models provides ready-made compartmental models.
package models

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/model"
)

// builder applies edits to a model and keeps the first error.
type builder struct {
	m   *model.Model
	err error
}

func (b *builder) value(name string, v float64) {
	if b.err == nil {
		b.err = b.m.SetCompartmentValue(name, v)
	}
}

func (b *builder) param(name, description, definition string) {
	if b.err == nil {
		_, b.err = b.m.AddParameter(name, description, definition)
	}
}

func (b *builder) process(name, description string, segments ...model.TimeSegment) {
	if b.err == nil {
		_, b.err = b.m.AddProcess(name, description, segments...)
	}
}

func (b *builder) define(name, definition string) {
	if b.err == nil {
		b.err = b.m.SetCompartmentDefinition(name, definition)
	}
}

func (b *builder) done() (*model.Model, error) {
	if b.err != nil {
		return nil, fmt.Errorf("building %s: %w", b.m.Population.Name, b.err)
	}
	return b.m, nil
}

// Example is a named constructor of a built-in model.
type Example struct {
	Description string
	New         func() (*model.Model, error)
}

var Examples = map[string]Example{
	"sir":     {"susceptible-infected-recovered", NewSIR},
	"seir":    {"SIR with a latent stage and a lockdown on day 40", NewSEIR},
	"age-sir": {"SIR stratified into two age groups", NewAgeSIR},
}

// Names returns the example names, sorted.
func Names() []string {
	names := make([]string, 0, len(Examples))
	for name := range Examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Get(name string) (*model.Model, error) {
	ex, ok := Examples[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return ex.New()
}
