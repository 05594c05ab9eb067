package compartmental

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/expression"
	"github.com/san-kum/episim/internal/model"
)

type parameter struct {
	name string
	prog *expression.Program
}

type process struct {
	name   string
	starts []float64
	progs  []*expression.Program
}

// at returns the program applicable at t, nil when none applies.
func (p *process) at(t float64) *expression.Program {
	i := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > t }) - 1
	if i < 0 {
		return nil
	}
	return p.progs[i]
}

type shortcut struct {
	name    string
	members []int
}

// System evaluates the derivatives of a model. It holds evaluation scratch
// and is not safe for concurrent use; build one per run.
type System struct {
	compartments []string
	derivs       []*expression.Program
	shortcuts    []shortcut
	parameters   []parameter
	processes    []process

	ev *expression.Evaluator
}

var _ dynamo.System = (*System)(nil)
var _ dynamo.Labeled = (*System)(nil)

// New compiles every definition of m. The model must validate.
func New(m *model.Model) (*System, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s := &System{ev: expression.NewEvaluator()}
	names := []string{expression.TimeVariable}
	index := make(map[model.ID]int)
	for i, c := range m.Compartments() {
		s.compartments = append(s.compartments, c.Name)
		names = append(names, c.Name)
		index[c.ID] = i
	}
	for _, sc := range m.Shortcuts() {
		short := shortcut{name: sc.Name}
		for _, id := range sc.Compartments {
			short.members = append(short.members, index[id])
		}
		s.shortcuts = append(s.shortcuts, short)
		names = append(names, sc.Name)
	}
	for _, p := range m.Parameters() {
		names = append(names, p.Name)
	}
	for _, p := range m.Processes() {
		names = append(names, p.Name)
	}

	compile := func(entity, text string) (*expression.Program, error) {
		if !model.HasDefinition(text) {
			return nil, nil
		}
		prog, err := expression.Compile(text, names)
		if err != nil {
			return nil, &model.ValidationError{Entity: entity, Text: text, Err: err}
		}
		return prog, nil
	}

	for _, p := range m.Parameters() {
		prog, err := compile(p.Name, p.Definition)
		if err != nil {
			return nil, err
		}
		s.parameters = append(s.parameters, parameter{name: p.Name, prog: prog})
	}
	for _, p := range m.Processes() {
		proc := process{name: p.Name}
		for _, seg := range p.Segments {
			prog, err := compile(p.Name, seg.Definition)
			if err != nil {
				return nil, err
			}
			proc.starts = append(proc.starts, seg.Start)
			proc.progs = append(proc.progs, prog)
		}
		s.processes = append(s.processes, proc)
	}
	for _, c := range m.Compartments() {
		prog, err := compile(c.Name, c.Definition)
		if err != nil {
			return nil, err
		}
		s.derivs = append(s.derivs, prog)
	}
	return s, nil
}

func (s *System) StateDim() int { return len(s.compartments) }

// Labels returns the compartment names in state order.
func (s *System) Labels() []string { return s.compartments }

// Names returns every name bound during an evaluation: the time variable,
// compartments, shortcuts, parameters and processes.
func (s *System) Names() []string {
	names := make([]string, 0, 1+len(s.compartments)+len(s.shortcuts)+len(s.parameters)+len(s.processes))
	names = append(names, expression.TimeVariable)
	names = append(names, s.compartments...)
	for _, sc := range s.shortcuts {
		names = append(names, sc.name)
	}
	for _, p := range s.parameters {
		names = append(names, p.name)
	}
	for _, p := range s.processes {
		names = append(names, p.name)
	}
	return names
}

func (s *System) fail(x dynamo.State, t float64, kind, entity string, err error) error {
	return &dynamo.SimulationError{
		Time:    t,
		State:   x.Clone(),
		Wrapped: fmt.Errorf("%s %q: %w", kind, entity, err),
	}
}

// bind evaluates everything but the derivatives at (x, t).
func (s *System) bind(x dynamo.State, t float64) error {
	if len(x) != len(s.compartments) {
		return dynamo.ErrDimensionMismatch
	}
	s.ev.Bind(expression.TimeVariable, t)
	for i, name := range s.compartments {
		s.ev.Bind(name, x[i])
	}
	for _, sc := range s.shortcuts {
		sum := 0.0
		for _, i := range sc.members {
			sum += x[i]
		}
		s.ev.Bind(sc.name, sum)
	}
	for _, p := range s.parameters {
		v := 0.0
		if p.prog != nil {
			var err error
			if v, err = s.ev.Evaluate(p.prog); err != nil {
				return s.fail(x, t, "parameter", p.name, err)
			}
		}
		s.ev.Bind(p.name, v)
	}
	for i := range s.processes {
		p := &s.processes[i]
		v := 0.0
		if prog := p.at(t); prog != nil {
			var err error
			if v, err = s.ev.Evaluate(prog); err != nil {
				return s.fail(x, t, "process", p.name, err)
			}
		}
		s.ev.Bind(p.name, v)
	}
	return nil
}

// Derive returns dx/dt. Compartments without a definition do not change.
func (s *System) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	if err := s.bind(x, t); err != nil {
		return nil, err
	}
	dx := make(dynamo.State, len(s.derivs))
	for i, prog := range s.derivs {
		if prog == nil {
			continue
		}
		v, err := s.ev.Evaluate(prog)
		if err != nil {
			return nil, s.fail(x, t, "compartment", s.compartments[i], err)
		}
		dx[i] = v
	}
	return dx, nil
}

// Snapshot evaluates the model at (x, t) and returns every bound value.
func (s *System) Snapshot(x dynamo.State, t float64) (map[string]float64, error) {
	if err := s.bind(x, t); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, name := range s.Names() {
		if v, ok := s.ev.Value(name); ok {
			out[name] = v
		}
	}
	return out, nil
}
