package expression

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Program is a compiled definition.
type Program struct {
	text  string
	names []string
	prog  *vm.Program
}

// Text returns the source of the definition.
func (p *Program) Text() string { return p.text }

// Names returns the identifiers the definition references.
func (p *Program) Names() []string { return p.names }

// Check validates text against scope: it rejects the separator, reports
// identifiers outside scope as an UndefinedReferenceError and parse or type
// errors as a SyntaxError.
func Check(text string, scope func(name string) bool) error {
	_, err := compile(text, scope)
	return err
}

// Compile compiles text against the given variable names.
func Compile(text string, names []string) (*Program, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return compile(text, func(name string) bool { return set[name] })
}

// CompileScope compiles text against an arbitrary scope predicate.
func CompileScope(text string, scope func(name string) bool) (*Program, error) {
	return compile(text, scope)
}

func compile(text string, scope func(name string) bool) (*Program, error) {
	if strings.Contains(text, Separator) {
		return nil, ErrSeparator
	}
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Text: text, Err: errors.New("empty definition")}
	}

	refs := Identifiers(text)
	var undefined []string
	for _, name := range refs {
		if !scope(name) {
			undefined = append(undefined, name)
		}
	}
	if len(undefined) > 0 {
		return nil, &UndefinedReferenceError{Text: text, Names: undefined}
	}

	env := make(map[string]any, len(refs))
	for _, name := range refs {
		env[name] = 0.0
	}
	opts := []expr.Option{expr.Env(env), expr.AsFloat64()}
	opts = append(opts, functionOptions()...)
	prog, err := expr.Compile(text, opts...)
	if err != nil {
		return nil, &SyntaxError{Text: text, Err: err}
	}
	return &Program{text: text, names: refs, prog: prog}, nil
}

// Evaluator holds variable bindings shared by many programs. It is not safe
// for concurrent use.
type Evaluator struct {
	env map[string]any
}

func NewEvaluator() *Evaluator {
	return &Evaluator{env: make(map[string]any)}
}

// Bind sets the value of a variable.
func (e *Evaluator) Bind(name string, value float64) {
	e.env[name] = value
}

// Value returns the bound value of name.
func (e *Evaluator) Value(name string) (float64, bool) {
	v, ok := e.env[name]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// Reset drops every binding.
func (e *Evaluator) Reset() {
	for k := range e.env {
		delete(e.env, k)
	}
}

// Evaluate runs p against the current bindings. Unbound variables and
// non-finite results are evaluation errors.
func (e *Evaluator) Evaluate(p *Program) (float64, error) {
	for _, name := range p.names {
		if _, ok := e.env[name]; !ok {
			return 0, &EvaluationError{Text: p.text, Err: fmt.Errorf("variable %q is not bound", name)}
		}
	}
	out, err := expr.Run(p.prog, e.env)
	if err != nil {
		return 0, &EvaluationError{Text: p.text, Err: err}
	}
	v, err := toFloat(out)
	if err != nil {
		return 0, &EvaluationError{Text: p.text, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &EvaluationError{Text: p.text, Err: fmt.Errorf("non-finite result %v", v)}
	}
	return v, nil
}

// Eval compiles and evaluates text in one go against the given bindings.
func Eval(text string, vars map[string]float64) (float64, error) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	p, err := Compile(text, names)
	if err != nil {
		return 0, err
	}
	ev := NewEvaluator()
	for name, v := range vars {
		ev.Bind(name, v)
	}
	return ev.Evaluate(p)
}
