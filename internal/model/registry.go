package model

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/expression"
)

// Entry is the owner of a registered name.
type Entry struct {
	ID   ID
	Kind Kind
}

// Registry is the single flat namespace shared by divisions, categories,
// compartments, parameters, processes, shortcuts and the evaluator's
// built-in vocabulary.
type Registry struct {
	names map[string]Entry
}

func NewRegistry() *Registry {
	r := &Registry{names: make(map[string]Entry)}
	for _, name := range expression.Reserved() {
		r.names[name] = Entry{Kind: KindReserved}
	}
	return r
}

// Check reports whether name could be reserved.
func (r *Registry) Check(name string) error {
	if !expression.IsIdentifier(name) {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidName, name)
	}
	if e, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %q is a %s", ErrNameTaken, name, e.Kind)
	}
	return nil
}

func (r *Registry) Reserve(name string, id ID, kind Kind) error {
	if err := r.Check(name); err != nil {
		return err
	}
	r.names[name] = Entry{ID: id, Kind: kind}
	return nil
}

func (r *Registry) Release(name string) {
	if e, ok := r.names[name]; ok && e.Kind != KindReserved {
		delete(r.names, name)
	}
}

// Rename moves the entry of oldName to newName.
func (r *Registry) Rename(oldName, newName string) error {
	e, ok := r.names[oldName]
	if !ok || e.Kind == KindReserved {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, oldName)
	}
	if err := r.Check(newName); err != nil {
		return err
	}
	delete(r.names, oldName)
	r.names[newName] = e
	return nil
}

func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.names[name]
	return e, ok
}

// Names returns the user-owned names of the given kind, sorted.
func (r *Registry) Names(kind Kind) []string {
	var out []string
	for name, e := range r.names {
		if e.Kind == kind {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Registry) clone() *Registry {
	c := &Registry{names: make(map[string]Entry, len(r.names))}
	for k, v := range r.names {
		c.names[k] = v
	}
	return c
}
