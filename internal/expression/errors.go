package expression

import (
	"errors"
	"fmt"
)

// Separator is the reserved statement separator. Definitions containing it
// are rejected before the evaluator sees them.
const Separator = ";"

// ErrSeparator is returned for definitions containing the reserved separator.
var ErrSeparator = errors.New("expression: statement separator ';' is not allowed")

// SyntaxError reports text that could not be parsed or type checked.
type SyntaxError struct {
	Text string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q: %v", e.Text, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// UndefinedReferenceError reports identifiers that are not resolvable in the
// scope the definition was checked against.
type UndefinedReferenceError struct {
	Text  string
	Names []string
}

func (e *UndefinedReferenceError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined reference %q in %q", e.Names[0], e.Text)
	}
	return fmt.Sprintf("undefined references %q in %q", e.Names, e.Text)
}

// EvaluationError reports a runtime failure of a compiled definition.
type EvaluationError struct {
	Text string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %q: %v", e.Text, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
