package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/episim/internal/expression"
)

// scope returns the resolvability predicate for a definition owned by an
// entity of kind at position pos in its ordered list.
func (m *Model) scope(kind Kind, pos int) func(string) bool {
	return func(name string) bool {
		if name == expression.TimeVariable {
			return true
		}
		if _, ok := m.compByName[name]; ok {
			return true
		}
		if _, ok := m.shortcutByName[name]; ok {
			return true
		}
		if i := m.parameterIndex(name); i >= 0 {
			return kind != KindParameter || i < pos
		}
		if i := m.processIndex(name); i >= 0 {
			switch kind {
			case KindProcess:
				return i < pos
			case KindCompartment:
				return true
			}
		}
		return false
	}
}

// resolve maps a name to the IDs a reference to it links to. A shortcut
// links to each of its compartments.
func (m *Model) resolve(name string) []ID {
	if c, ok := m.compByName[name]; ok {
		return []ID{c.ID}
	}
	if s, ok := m.shortcutByName[name]; ok {
		return s.Compartments
	}
	if p, ok := m.Parameter(name); ok {
		return []ID{p.ID}
	}
	if p, ok := m.Process(name); ok {
		return []ID{p.ID}
	}
	return nil
}

// check validates a non-empty definition for an entity at a position.
func (m *Model) check(entity string, kind Kind, pos int, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := expression.Check(text, m.scope(kind, pos)); err != nil {
		return &ValidationError{Entity: entity, Text: text, Err: err}
	}
	return nil
}

// link replaces every reference contributed by id with those found in
// texts. Names outside scope are recorded as dangling and returned.
func (m *Model) link(id ID, kind Kind, pos int, texts ...string) []string {
	m.graph.Unlink(id)
	delete(m.dangling, id)
	in := m.scope(kind, pos)
	var missing []string
	seen := make(map[string]bool)
	for _, text := range texts {
		for _, name := range expression.Identifiers(text) {
			if seen[name] || name == expression.TimeVariable {
				continue
			}
			seen[name] = true
			if !in(name) {
				missing = append(missing, name)
				continue
			}
			for _, to := range m.resolve(name) {
				m.graph.Link(id, to)
			}
		}
	}
	if len(missing) > 0 {
		set := make(map[string]bool, len(missing))
		for _, name := range missing {
			set[name] = true
		}
		m.dangling[id] = set
	}
	return missing
}

// relink rebuilds the references of an existing entity from its current
// definitions.
func (m *Model) relink(id ID) []string {
	for i, p := range m.parameters {
		if p.ID == id {
			return m.link(id, KindParameter, i, p.Definition)
		}
	}
	for i, p := range m.processes {
		if p.ID == id {
			return m.link(id, KindProcess, i, segmentTexts(p.Segments)...)
		}
	}
	if c := m.compartmentByID(id); c != nil {
		return m.link(id, KindCompartment, 0, c.Definition)
	}
	return nil
}

// relinkDangling retries dangling references after name became available.
func (m *Model) relinkDangling(name string) {
	var ids []ID
	for id, names := range m.dangling {
		if names[name] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		m.relink(id)
	}
}

func (m *Model) clearDefinitions(id ID) {
	for _, p := range m.parameters {
		if p.ID == id {
			p.Definition = ""
		}
	}
	for _, p := range m.processes {
		if p.ID == id {
			for i := range p.Segments {
				p.Segments[i].Definition = ""
			}
		}
	}
	m.graph.Unlink(id)
	delete(m.dangling, id)
}

// Dangling returns, per entity name, the referenced names that do not
// resolve. It is empty for a model built only through validated edits.
func (m *Model) Dangling() map[string][]string {
	out := make(map[string][]string, len(m.dangling))
	for id, set := range m.dangling {
		name, _ := m.nameOf(id)
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		out[name] = names
	}
	return out
}

func segmentTexts(segs []TimeSegment) []string {
	texts := make([]string, len(segs))
	for i, s := range segs {
		texts[i] = s.Definition
	}
	return texts
}

// normalizeSegments sorts a copy of segs by start time and rejects
// duplicate or non-finite start times.
func normalizeSegments(process string, segs []TimeSegment) ([]TimeSegment, error) {
	out := append([]TimeSegment(nil), segs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	for i, s := range out {
		if math.IsNaN(s.Start) || math.IsInf(s.Start, 0) {
			return nil, fmt.Errorf("%w: process %q has a non-finite start time", ErrSegments, process)
		}
		if i > 0 && out[i-1].Start == s.Start {
			return nil, fmt.Errorf("%w: process %q has two segments starting at %g", ErrSegments, process, s.Start)
		}
	}
	return out, nil
}

// ValidateDefinition checks text as the definition of the named parameter,
// process or compartment. An unknown parameter or process name is checked
// as if it were appended to its list; kind selects which.
func (m *Model) ValidateDefinition(kind Kind, name, text string) error {
	switch kind {
	case KindParameter:
		pos := m.parameterIndex(name)
		if pos < 0 {
			pos = len(m.parameters)
		}
		return m.check(name, kind, pos, text)
	case KindProcess:
		pos := m.processIndex(name)
		if pos < 0 {
			pos = len(m.processes)
		}
		return m.check(name, kind, pos, text)
	case KindCompartment:
		if _, ok := m.compByName[name]; !ok {
			return fmt.Errorf("%w: compartment %q", ErrUnknownEntity, name)
		}
		return m.check(name, kind, 0, text)
	}
	return fmt.Errorf("%w: a %s has no definition", ErrNotEditable, kind)
}

// AddParameter appends a parameter. The definition may be empty.
func (m *Model) AddParameter(name, description, definition string) (*Parameter, error) {
	if err := m.registry.Check(name); err != nil {
		return nil, err
	}
	pos := len(m.parameters)
	if err := m.check(name, KindParameter, pos, definition); err != nil {
		return nil, err
	}
	p := &Parameter{ID: newID(), Name: name, Description: description, Definition: definition}
	_ = m.registry.Reserve(name, p.ID, KindParameter)
	m.parameters = append(m.parameters, p)
	m.link(p.ID, KindParameter, pos, definition)
	m.relinkDangling(name)
	return p, nil
}

func (m *Model) SetParameterDefinition(name, definition string) error {
	pos := m.parameterIndex(name)
	if pos < 0 {
		return fmt.Errorf("%w: parameter %q", ErrUnknownEntity, name)
	}
	if err := m.check(name, KindParameter, pos, definition); err != nil {
		return err
	}
	p := m.parameters[pos]
	p.Definition = definition
	m.link(p.ID, KindParameter, pos, definition)
	return nil
}

func (m *Model) SetParameterDescription(name, description string) error {
	p, ok := m.Parameter(name)
	if !ok {
		return fmt.Errorf("%w: parameter %q", ErrUnknownEntity, name)
	}
	p.Description = description
	return nil
}

// AddProcess appends a process with the given segments.
func (m *Model) AddProcess(name, description string, segments ...TimeSegment) (*Process, error) {
	if err := m.registry.Check(name); err != nil {
		return nil, err
	}
	pos := len(m.processes)
	segs, err := m.checkSegments(name, pos, segments)
	if err != nil {
		return nil, err
	}
	p := &Process{ID: newID(), Name: name, Description: description, Segments: segs}
	_ = m.registry.Reserve(name, p.ID, KindProcess)
	m.processes = append(m.processes, p)
	m.link(p.ID, KindProcess, pos, segmentTexts(segs)...)
	m.relinkDangling(name)
	return p, nil
}

// SetProcessSegments replaces every segment of a process.
func (m *Model) SetProcessSegments(name string, segments ...TimeSegment) error {
	pos := m.processIndex(name)
	if pos < 0 {
		return fmt.Errorf("%w: process %q", ErrUnknownEntity, name)
	}
	segs, err := m.checkSegments(name, pos, segments)
	if err != nil {
		return err
	}
	p := m.processes[pos]
	p.Segments = segs
	m.link(p.ID, KindProcess, pos, segmentTexts(segs)...)
	return nil
}

func (m *Model) SetProcessDescription(name, description string) error {
	p, ok := m.Process(name)
	if !ok {
		return fmt.Errorf("%w: process %q", ErrUnknownEntity, name)
	}
	p.Description = description
	return nil
}

func (m *Model) checkSegments(name string, pos int, segments []TimeSegment) ([]TimeSegment, error) {
	segs, err := normalizeSegments(name, segments)
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		if err := m.check(name, KindProcess, pos, s.Definition); err != nil {
			return nil, err
		}
	}
	return segs, nil
}

func (m *Model) SetCompartmentDefinition(name, definition string) error {
	c, ok := m.compByName[name]
	if !ok {
		return fmt.Errorf("%w: compartment %q", ErrUnknownEntity, name)
	}
	if err := m.check(name, KindCompartment, 0, definition); err != nil {
		return err
	}
	c.Definition = definition
	m.link(c.ID, KindCompartment, 0, definition)
	return nil
}

// Dependents returns the entities whose definitions reference name. For a
// shortcut these are the referrers of its compartments.
func (m *Model) Dependents(name string) (Dependents, error) {
	var targets []ID
	if s, ok := m.shortcutByName[name]; ok {
		targets = s.Compartments
	} else if c, ok := m.compByName[name]; ok {
		targets = []ID{c.ID}
	} else if e, ok := m.registry.Lookup(name); ok && (e.Kind == KindParameter || e.Kind == KindProcess) {
		targets = []ID{e.ID}
	} else if ok && e.Kind != KindReserved {
		return Dependents{}, nil
	} else {
		return Dependents{}, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}

	var d Dependents
	seen := make(map[ID]bool)
	for _, t := range targets {
		for _, ref := range m.graph.Referrers(t) {
			if seen[ref] {
				continue
			}
			seen[ref] = true
			refName, kind := m.nameOf(ref)
			switch kind {
			case KindParameter:
				d.Parameters = append(d.Parameters, refName)
			case KindProcess:
				d.Processes = append(d.Processes, refName)
			case KindCompartment:
				d.Compartments = append(d.Compartments, refName)
			}
		}
	}
	sort.Strings(d.Parameters)
	sort.Strings(d.Processes)
	sort.Strings(d.Compartments)
	return d, nil
}

// CanDelete reports whether a parameter or process may be deleted: nil, or
// a *StructuralError naming the entities that still reference it.
func (m *Model) CanDelete(name string) error {
	e, ok := m.registry.Lookup(name)
	if !ok || e.Kind == KindReserved {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	if e.Kind != KindParameter && e.Kind != KindProcess {
		return fmt.Errorf("%w: a %s cannot be deleted", ErrNotEditable, e.Kind)
	}
	d, err := m.Dependents(name)
	if err != nil {
		return err
	}
	if d.Empty() {
		return nil
	}
	return &StructuralError{Op: "delete", Entity: name, Blocking: d.All()}
}

func (m *Model) DeleteParameter(name string) error {
	if err := m.CanDelete(name); err != nil {
		return err
	}
	i := m.parameterIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: parameter %q", ErrUnknownEntity, name)
	}
	p := m.parameters[i]
	m.parameters = append(m.parameters[:i], m.parameters[i+1:]...)
	m.forget(p.ID, name)
	return nil
}

func (m *Model) DeleteProcess(name string) error {
	if err := m.CanDelete(name); err != nil {
		return err
	}
	i := m.processIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: process %q", ErrUnknownEntity, name)
	}
	p := m.processes[i]
	m.processes = append(m.processes[:i], m.processes[i+1:]...)
	m.forget(p.ID, name)
	return nil
}

func (m *Model) forget(id ID, name string) {
	m.registry.Release(name)
	m.graph.Remove(id)
	delete(m.dangling, id)
}

// CanReorder reports whether moving the entity at from to position to in
// the parameter or process list keeps every reference pointing backwards.
func (m *Model) CanReorder(kind Kind, from, to int) error {
	ids, names, err := m.ordered(kind)
	if err != nil {
		return err
	}
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return fmt.Errorf("%w: %s position out of range", ErrUnknownEntity, kind)
	}
	var blocking []string
	switch {
	case to < from:
		// the moved entity ends up before ids[to:from]
		for i := to; i < from; i++ {
			if m.graph.References(ids[from], ids[i]) {
				blocking = append(blocking, names[i])
			}
		}
	case to > from:
		// ids[from+1:to+1] end up before the moved entity
		for i := from + 1; i <= to; i++ {
			if m.graph.References(ids[i], ids[from]) {
				blocking = append(blocking, names[i])
			}
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	sort.Strings(blocking)
	return &StructuralError{Op: "move", Entity: names[from], Blocking: blocking}
}

func (m *Model) ordered(kind Kind) ([]ID, []string, error) {
	var ids []ID
	var names []string
	switch kind {
	case KindParameter:
		for _, p := range m.parameters {
			ids, names = append(ids, p.ID), append(names, p.Name)
		}
	case KindProcess:
		for _, p := range m.processes {
			ids, names = append(ids, p.ID), append(names, p.Name)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %s entities are not ordered", ErrNotEditable, kind)
	}
	return ids, names, nil
}

func (m *Model) MoveParameter(from, to int) error {
	if err := m.CanReorder(KindParameter, from, to); err != nil {
		return err
	}
	m.parameters = move(m.parameters, from, to)
	return nil
}

func (m *Model) MoveProcess(from, to int) error {
	if err := m.CanReorder(KindProcess, from, to); err != nil {
		return err
	}
	m.processes = move(m.processes, from, to)
	return nil
}

func move[T any](s []T, from, to int) []T {
	if from == to {
		return s
	}
	v := s[from]
	s = append(s[:from], s[from+1:]...)
	s = append(s[:to], append([]T{v}, s[to:]...)...)
	return s
}

// Rename renames a parameter, process, division or category. Every
// definition referencing the renamed names is rewritten token by token.
// Renaming a category also renames the compartments and the shortcut
// derived from it.
func (m *Model) Rename(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	e, ok := m.registry.Lookup(oldName)
	if !ok || e.Kind == KindReserved {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, oldName)
	}
	switch e.Kind {
	case KindParameter, KindProcess:
		if err := m.registry.Rename(oldName, newName); err != nil {
			return err
		}
		if p, ok := m.Parameter(oldName); ok {
			p.Name = newName
		} else if p, ok := m.Process(oldName); ok {
			p.Name = newName
		}
		m.rewrite(m.graph.Referrers(e.ID), map[string]string{oldName: newName})
		m.relinkDangling(newName)
		return nil
	case KindDivision:
		if err := m.registry.Rename(oldName, newName); err != nil {
			return err
		}
		for _, d := range m.Population.Divisions {
			if d.ID == e.ID {
				d.Name = newName
			}
		}
		return nil
	case KindCategory:
		return m.renameCategory(e.ID, oldName, newName)
	}
	return fmt.Errorf("%w: a %s cannot be renamed", ErrNotEditable, e.Kind)
}

func (m *Model) renameCategory(id ID, oldName, newName string) error {
	div := -1
	for i, d := range m.Population.Divisions {
		for _, c := range d.Categories {
			if c.ID == id {
				div = i
			}
		}
	}
	if div < 0 {
		return fmt.Errorf("%w: category %q", ErrUnknownEntity, oldName)
	}

	reg := m.registry.clone()
	if err := reg.Rename(oldName, newName); err != nil {
		return err
	}
	renames := map[string]string{oldName: newName}
	var affected []*Compartment
	for _, c := range m.compartments {
		if !containsID(c.Categories, id) {
			continue
		}
		affected = append(affected, c)
		renames[c.Name] = m.compartmentName(c, id, newName)
	}
	if len(m.Population.Divisions) > 1 {
		for _, c := range affected {
			reg.Release(c.Name)
		}
		for _, c := range affected {
			if err := reg.Reserve(renames[c.Name], c.ID, KindCompartment); err != nil {
				return fmt.Errorf("renaming category %q: %w", oldName, err)
			}
		}
	}

	var referrers []ID
	seen := make(map[ID]bool)
	for _, c := range affected {
		for _, ref := range m.graph.Referrers(c.ID) {
			if !seen[ref] {
				seen[ref] = true
				referrers = append(referrers, ref)
			}
		}
	}

	m.registry = reg
	for _, d := range m.Population.Divisions {
		for _, c := range d.Categories {
			if c.ID == id {
				c.Name = newName
			}
		}
	}
	for _, c := range affected {
		delete(m.compByName, c.Name)
	}
	for _, c := range affected {
		c.Name = renames[c.Name]
		m.compByName[c.Name] = c
	}
	if s, ok := m.shortcutByName[oldName]; ok {
		delete(m.shortcutByName, oldName)
		s.Name = newName
		m.shortcutByName[newName] = s
	}
	m.rewrite(referrers, renames)
	return nil
}

// compartmentName recomputes the name of c with category id renamed.
func (m *Model) compartmentName(c *Compartment, id ID, newName string) string {
	parts := make([]string, len(c.Categories))
	for i, cid := range c.Categories {
		if cid == id {
			parts[i] = newName
			continue
		}
		for _, cat := range m.Population.Divisions[i].Categories {
			if cat.ID == cid {
				parts[i] = cat.Name
			}
		}
	}
	return CompartmentName(parts)
}

// rewrite applies renames to every definition owned by ids. Links are
// keyed by ID and stay valid.
func (m *Model) rewrite(ids []ID, renames map[string]string) {
	for _, id := range ids {
		for _, p := range m.parameters {
			if p.ID == id {
				p.Definition = expression.RenameTokens(p.Definition, renames)
			}
		}
		for _, p := range m.processes {
			if p.ID == id {
				for i := range p.Segments {
					p.Segments[i].Definition = expression.RenameTokens(p.Segments[i].Definition, renames)
				}
			}
		}
		if c := m.compartmentByID(id); c != nil {
			c.Definition = expression.RenameTokens(c.Definition, renames)
		}
	}
}
