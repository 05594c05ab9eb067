package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownEntity = errors.New("model: unknown entity")
	ErrNameTaken     = errors.New("model: name already in use")
	ErrInvalidName   = errors.New("model: invalid name")
	ErrStructure     = errors.New("model: invalid population structure")
	ErrPopulation    = errors.New("model: invalid population")
	ErrSegments      = errors.New("model: invalid time segments")
	ErrNotEditable   = errors.New("model: entity is not editable")
)

// ValidationError reports a definition rejected at authoring time. Err is a
// *expression.SyntaxError, *expression.UndefinedReferenceError or
// expression.ErrSeparator.
type ValidationError struct {
	Entity string
	Text   string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid definition of %s: %v", e.Entity, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// StructuralError reports a mutation blocked by existing references.
type StructuralError struct {
	Op       string
	Entity   string
	Blocking []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("cannot %s %s: referenced by %s", e.Op, e.Entity, strings.Join(e.Blocking, ", "))
}
