package model

import (
	"fmt"
	"math"
	"sort"
)

// Policy decides what happens to parameter and process definitions that
// reference compartments when the compartments are regenerated.
type Policy int

const (
	// KeepDependents keeps the text and relinks it against the new names.
	KeepDependents Policy = iota
	// ClearDependents clears every affected definition.
	ClearDependents
)

// Report describes the effect of a structural change.
type Report struct {
	// Impacted lists the parameters and processes that referenced the
	// discarded compartments or shortcuts, including those still dangling
	// from an earlier change.
	Impacted []string
	// Unresolved maps an entity to the names its kept definitions mention
	// that no longer resolve.
	Unresolved map[string][]string
}

type Model struct {
	Population Population

	compartments []*Compartment
	shortcuts    []*Shortcut
	parameters   []*Parameter
	processes    []*Process

	compByName     map[string]*Compartment
	shortcutByName map[string]*Shortcut

	registry *Registry
	graph    *Graph
	// dangling holds, per entity, names its definitions mention that do
	// not resolve in its scope.
	dangling map[ID]map[string]bool
}

// New creates a model with at least one division. All habitants start in
// the first compartment.
func New(name string, habitants float64, divisions ...DivisionSpec) (*Model, error) {
	if habitants < 0 || math.IsNaN(habitants) || math.IsInf(habitants, 0) {
		return nil, fmt.Errorf("%w: habitants must be a non-negative number, got %g", ErrPopulation, habitants)
	}
	if len(divisions) == 0 {
		return nil, fmt.Errorf("%w: at least one division is required", ErrStructure)
	}
	m := &Model{
		Population:     Population{Name: name, Habitants: habitants},
		compByName:     make(map[string]*Compartment),
		shortcutByName: make(map[string]*Shortcut),
		registry:       NewRegistry(),
		graph:          NewGraph(),
		dangling:       make(map[ID]map[string]bool),
	}
	reg := m.registry.clone()
	divs := make([]*Division, 0, len(divisions))
	for _, spec := range divisions {
		d, err := buildDivision(reg, spec)
		if err != nil {
			return nil, err
		}
		divs = append(divs, d)
	}
	if err := registerCompartments(reg, divs); err != nil {
		return nil, err
	}
	m.registry = reg
	m.Population.Divisions = divs
	m.regenerate()
	return m, nil
}

func buildDivision(reg *Registry, spec DivisionSpec) (*Division, error) {
	if len(spec.Categories) < 2 {
		return nil, fmt.Errorf("%w: division %q needs at least two categories", ErrStructure, spec.Name)
	}
	d := &Division{ID: newID(), Name: spec.Name}
	if err := reg.Reserve(spec.Name, d.ID, KindDivision); err != nil {
		return nil, err
	}
	for _, cs := range spec.Categories {
		c := &Category{ID: newID(), Name: cs.Name, Description: cs.Description}
		if err := reg.Reserve(cs.Name, c.ID, KindCategory); err != nil {
			return nil, err
		}
		d.Categories = append(d.Categories, c)
	}
	return d, nil
}

// registerCompartments reserves generated compartment names. With a single
// division the compartments are the categories and own no extra names.
func registerCompartments(reg *Registry, divs []*Division) error {
	if len(divs) < 2 {
		return nil
	}
	for _, name := range Generate(divs) {
		if err := reg.Reserve(name, "", KindCompartment); err != nil {
			return fmt.Errorf("generated compartment: %w", err)
		}
	}
	return nil
}

// regenerate rebuilds compartments and shortcuts from the divisions. It
// assumes the registry already holds the new names.
func (m *Model) regenerate() {
	divs := m.Population.Divisions
	cats := make([][]*Category, len(divs))
	for i, d := range divs {
		cats[i] = d.Categories
	}

	m.compartments = nil
	m.compByName = make(map[string]*Compartment)
	m.shortcuts = nil
	m.shortcutByName = make(map[string]*Shortcut)

	total := 1
	for _, c := range cats {
		total *= len(c)
	}
	idx := make([]int, len(cats))
	for n := 0; n < total; n++ {
		ids := make([]ID, len(cats))
		names := make([]string, len(cats))
		for d, i := range idx {
			ids[d] = cats[d][i].ID
			names[d] = cats[d][i].Name
		}
		c := &Compartment{ID: newID(), Name: CompartmentName(names), Categories: ids}
		if len(divs) > 1 {
			m.registry.names[c.Name] = Entry{ID: c.ID, Kind: KindCompartment}
		}
		m.compartments = append(m.compartments, c)
		m.compByName[c.Name] = c

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(cats[d]) {
				break
			}
			idx[d] = 0
		}
	}
	if len(m.compartments) > 0 {
		m.compartments[0].Value = m.Population.Habitants
	}

	for _, d := range divs[min(1, len(divs)):] {
		for _, cat := range d.Categories {
			s := &Shortcut{ID: cat.ID, Name: cat.Name}
			for _, c := range m.compartments {
				if containsID(c.Categories, cat.ID) {
					s.Compartments = append(s.Compartments, c.ID)
				}
			}
			m.shortcuts = append(m.shortcuts, s)
			m.shortcutByName[s.Name] = s
		}
	}
}

func containsID(ids []ID, id ID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *Model) Divisions() []*Division       { return m.Population.Divisions }
func (m *Model) Compartments() []*Compartment { return m.compartments }
func (m *Model) Shortcuts() []*Shortcut       { return m.shortcuts }
func (m *Model) Parameters() []*Parameter     { return m.parameters }
func (m *Model) Processes() []*Process        { return m.processes }
func (m *Model) Registry() *Registry          { return m.registry }
func (m *Model) Graph() *Graph                { return m.graph }

// CompartmentNames returns the compartment names in state-vector order.
func (m *Model) CompartmentNames() []string {
	names := make([]string, len(m.compartments))
	for i, c := range m.compartments {
		names[i] = c.Name
	}
	return names
}

// InitialState returns the current compartment values in order.
func (m *Model) InitialState() []float64 {
	x := make([]float64, len(m.compartments))
	for i, c := range m.compartments {
		x[i] = c.Value
	}
	return x
}

func (m *Model) Compartment(name string) (*Compartment, bool) {
	c, ok := m.compByName[name]
	return c, ok
}

func (m *Model) Shortcut(name string) (*Shortcut, bool) {
	s, ok := m.shortcutByName[name]
	return s, ok
}

func (m *Model) Parameter(name string) (*Parameter, bool) {
	i := m.parameterIndex(name)
	if i < 0 {
		return nil, false
	}
	return m.parameters[i], true
}

func (m *Model) Process(name string) (*Process, bool) {
	i := m.processIndex(name)
	if i < 0 {
		return nil, false
	}
	return m.processes[i], true
}

func (m *Model) parameterIndex(name string) int {
	for i, p := range m.parameters {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) processIndex(name string) int {
	for i, p := range m.processes {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Combinations previews the compartments compatible with a partial
// category assignment.
func (m *Model) Combinations(partial map[string]string) ([]string, error) {
	return Combinations(m.Population.Divisions, partial)
}

// ShortcutCompartments returns the names of the compartments a shortcut sums.
func (m *Model) ShortcutCompartments(name string) []string {
	s, ok := m.shortcutByName[name]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(s.Compartments))
	for _, id := range s.Compartments {
		if c := m.compartmentByID(id); c != nil {
			names = append(names, c.Name)
		}
	}
	return names
}

func (m *Model) compartmentByID(id ID) *Compartment {
	for _, c := range m.compartments {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// SetHabitants changes the population size. Compartment values are left
// alone; Validate reports a mismatch.
func (m *Model) SetHabitants(n float64) error {
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("%w: habitants must be a non-negative number, got %g", ErrPopulation, n)
	}
	m.Population.Habitants = n
	return nil
}

// SetCompartmentValue sets the current value of a compartment.
func (m *Model) SetCompartmentValue(name string, v float64) error {
	c, ok := m.compByName[name]
	if !ok {
		return fmt.Errorf("%w: compartment %q", ErrUnknownEntity, name)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("compartment %q: value must be finite", name)
	}
	c.Value = v
	return nil
}

// StructureImpact lists the parameters and processes whose definitions
// reference compartments or shortcuts and would be affected by
// regenerating the compartments.
func (m *Model) StructureImpact() []string {
	var names []string
	for _, id := range m.structureImpact() {
		name, _ := m.nameOf(id)
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) structureImpact() []ID {
	seen := make(map[ID]bool)
	var ids []ID
	for _, c := range m.compartments {
		for _, ref := range m.graph.Referrers(c.ID) {
			if seen[ref] {
				continue
			}
			if _, kind := m.nameOf(ref); kind == KindParameter || kind == KindProcess {
				seen[ref] = true
				ids = append(ids, ref)
			}
		}
	}
	return ids
}

// AddDivision appends a division and regenerates the compartments.
func (m *Model) AddDivision(spec DivisionSpec, policy Policy) (*Report, error) {
	reg := m.registry.clone()
	d, err := buildDivision(reg, spec)
	if err != nil {
		return nil, err
	}
	divs := append(append([]*Division(nil), m.Population.Divisions...), d)
	return m.restructure(reg, divs, policy)
}

// RemoveDivision removes a division and regenerates the compartments. The
// last division cannot be removed.
func (m *Model) RemoveDivision(name string, policy Policy) (*Report, error) {
	if len(m.Population.Divisions) < 2 {
		return nil, fmt.Errorf("%w: the last division cannot be removed", ErrStructure)
	}
	reg := m.registry.clone()
	var divs []*Division
	found := false
	for _, d := range m.Population.Divisions {
		if d.Name != name {
			divs = append(divs, d)
			continue
		}
		found = true
		reg.Release(d.Name)
		for _, c := range d.Categories {
			reg.Release(c.Name)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: division %q", ErrUnknownEntity, name)
	}
	return m.restructure(reg, divs, policy)
}

// AddCategory appends a category to a division and regenerates the
// compartments.
func (m *Model) AddCategory(division string, spec CategorySpec, policy Policy) (*Report, error) {
	reg := m.registry.clone()
	c := &Category{ID: newID(), Name: spec.Name, Description: spec.Description}
	if err := reg.Reserve(spec.Name, c.ID, KindCategory); err != nil {
		return nil, err
	}
	divs, err := m.replaceDivision(division, func(d *Division) *Division {
		nd := *d
		nd.Categories = append(append([]*Category(nil), d.Categories...), c)
		return &nd
	})
	if err != nil {
		return nil, err
	}
	return m.restructure(reg, divs, policy)
}

// RemoveCategory removes a category from a division, which must keep at
// least two, and regenerates the compartments.
func (m *Model) RemoveCategory(division, category string, policy Policy) (*Report, error) {
	reg := m.registry.clone()
	var structErr error
	divs, err := m.replaceDivision(division, func(d *Division) *Division {
		nd := *d
		nd.Categories = nil
		for _, c := range d.Categories {
			if c.Name != category {
				nd.Categories = append(nd.Categories, c)
			}
		}
		switch {
		case len(nd.Categories) == len(d.Categories):
			structErr = fmt.Errorf("%w: category %q in division %q", ErrUnknownEntity, category, division)
		case len(nd.Categories) < 2:
			structErr = fmt.Errorf("%w: division %q needs at least two categories", ErrStructure, division)
		}
		return &nd
	})
	if err != nil {
		return nil, err
	}
	if structErr != nil {
		return nil, structErr
	}
	reg.Release(category)
	return m.restructure(reg, divs, policy)
}

func (m *Model) replaceDivision(name string, fn func(*Division) *Division) ([]*Division, error) {
	divs := make([]*Division, len(m.Population.Divisions))
	found := false
	for i, d := range m.Population.Divisions {
		if d.Name == name {
			divs[i] = fn(d)
			found = true
		} else {
			divs[i] = d
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: division %q", ErrUnknownEntity, name)
	}
	return divs, nil
}

// restructure swaps in new divisions and a registry that already reflects
// added and removed division and category names, then regenerates.
func (m *Model) restructure(reg *Registry, divs []*Division, policy Policy) (*Report, error) {
	for _, c := range m.compartments {
		if e, ok := reg.names[c.Name]; ok && e.Kind == KindCompartment {
			delete(reg.names, c.Name)
		}
	}
	if err := registerCompartments(reg, divs); err != nil {
		return nil, err
	}

	// Entities left dangling by an earlier restructure still mention
	// compartments discarded then and are affected like current dependents.
	impacted := m.structureImpact()
	for _, id := range m.orderedEntities() {
		if _, ok := m.dangling[id]; ok && !containsID(impacted, id) {
			impacted = append(impacted, id)
		}
	}
	report := &Report{Unresolved: make(map[string][]string)}
	for _, id := range impacted {
		name, _ := m.nameOf(id)
		report.Impacted = append(report.Impacted, name)
	}
	sort.Strings(report.Impacted)

	for _, c := range m.compartments {
		m.graph.Remove(c.ID)
		delete(m.dangling, c.ID)
	}
	m.registry = reg
	m.Population.Divisions = divs
	m.regenerate()

	relink := make(map[ID]bool)
	for _, id := range impacted {
		relink[id] = true
	}
	for id := range m.dangling {
		relink[id] = true
	}
	for _, id := range m.orderedEntities() {
		if !relink[id] {
			continue
		}
		if policy == ClearDependents && containsID(impacted, id) {
			m.clearDefinitions(id)
			continue
		}
		if missing := m.relink(id); len(missing) > 0 {
			name, _ := m.nameOf(id)
			report.Unresolved[name] = missing
		}
	}
	return report, nil
}

// orderedEntities lists parameter then process IDs in evaluation order.
func (m *Model) orderedEntities() []ID {
	ids := make([]ID, 0, len(m.parameters)+len(m.processes))
	for _, p := range m.parameters {
		ids = append(ids, p.ID)
	}
	for _, p := range m.processes {
		ids = append(ids, p.ID)
	}
	return ids
}

func (m *Model) nameOf(id ID) (string, Kind) {
	for _, p := range m.parameters {
		if p.ID == id {
			return p.Name, KindParameter
		}
	}
	for _, p := range m.processes {
		if p.ID == id {
			return p.Name, KindProcess
		}
	}
	if c := m.compartmentByID(id); c != nil {
		return c.Name, KindCompartment
	}
	for _, s := range m.shortcuts {
		if s.ID == id {
			return s.Name, KindShortcut
		}
	}
	return "", KindReserved
}
