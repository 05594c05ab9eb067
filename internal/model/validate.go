package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// PopulationTolerance is the relative tolerance of the population check.
const PopulationTolerance = 1e-9

// CheckPopulation reports whether the compartment values add up to the
// number of habitants.
func (m *Model) CheckPopulation() error {
	sum := 0.0
	for _, c := range m.compartments {
		sum += c.Value
	}
	h := m.Population.Habitants
	if math.Abs(sum-h) > PopulationTolerance*math.Max(1, math.Abs(h)) {
		return fmt.Errorf("%w: compartments hold %g, population has %g habitants", ErrPopulation, sum, h)
	}
	return nil
}

// Validate checks every definition at its position, the segment ordering
// of every process and the population sum. All problems are joined.
func (m *Model) Validate() error {
	var errs []error
	if err := m.CheckPopulation(); err != nil {
		errs = append(errs, err)
	}
	for i, p := range m.parameters {
		if err := m.check(p.Name, KindParameter, i, p.Definition); err != nil {
			errs = append(errs, err)
		}
	}
	for i, p := range m.processes {
		for j := 1; j < len(p.Segments); j++ {
			if p.Segments[j-1].Start >= p.Segments[j].Start {
				errs = append(errs, fmt.Errorf("%w: process %q segments do not have strictly increasing start times", ErrSegments, p.Name))
				break
			}
		}
		for _, s := range p.Segments {
			if err := m.check(p.Name, KindProcess, i, s.Definition); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, c := range m.compartments {
		if err := m.check(c.Name, KindCompartment, 0, c.Definition); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasDefinition reports whether text defines anything.
func HasDefinition(text string) bool {
	return strings.TrimSpace(text) != ""
}
