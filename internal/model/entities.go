package model

import (
	"sort"

	"github.com/google/uuid"
)

// ID identifies an entity for its whole lifetime, across renames.
type ID string

func newID() ID { return ID(uuid.NewString()) }

// Kind classifies the owner of a name.
type Kind int

const (
	KindDivision Kind = iota
	KindCategory
	KindCompartment
	KindParameter
	KindProcess
	KindShortcut
	KindReserved
)

func (k Kind) String() string {
	switch k {
	case KindDivision:
		return "division"
	case KindCategory:
		return "category"
	case KindCompartment:
		return "compartment"
	case KindParameter:
		return "parameter"
	case KindProcess:
		return "process"
	case KindShortcut:
		return "shortcut"
	case KindReserved:
		return "reserved"
	}
	return "unknown"
}

type Category struct {
	ID          ID
	Name        string
	Description string
}

type Division struct {
	ID         ID
	Name       string
	Categories []*Category
}

// Population is the stratified population being modelled.
type Population struct {
	Name      string
	Habitants float64
	Divisions []*Division
}

// Compartment is one cell of the category cross product and one ODE state
// variable. Categories holds one category ID per division, in division order.
type Compartment struct {
	ID         ID
	Name       string
	Categories []ID
	Value      float64
	Definition string
}

type Parameter struct {
	ID          ID
	Name        string
	Description string
	Definition  string
}

// TimeSegment defines a process from Start onwards until the next segment.
type TimeSegment struct {
	Start      float64
	Definition string
}

type Process struct {
	ID          ID
	Name        string
	Description string
	Segments    []TimeSegment
}

// SegmentAt returns the index of the segment applicable at t: the one with
// the greatest start time not after t. It returns -1 before the first one.
func (p *Process) SegmentAt(t float64) int {
	i := sort.Search(len(p.Segments), func(i int) bool { return p.Segments[i].Start > t })
	return i - 1
}

// Shortcut names the sum of every compartment carrying one category of a
// non-principal division. It shares its ID and name with that category.
type Shortcut struct {
	ID           ID
	Name         string
	Compartments []ID
}

// DivisionSpec describes a division to create.
type DivisionSpec struct {
	Name       string
	Categories []CategorySpec
}

type CategorySpec struct {
	Name        string
	Description string
}

// Div is shorthand for a DivisionSpec with undescribed categories.
func Div(name string, categories ...string) DivisionSpec {
	spec := DivisionSpec{Name: name}
	for _, c := range categories {
		spec.Categories = append(spec.Categories, CategorySpec{Name: c})
	}
	return spec
}

// Dependents lists, by name, the entities whose definitions reference one
// entity.
type Dependents struct {
	Parameters   []string
	Processes    []string
	Compartments []string
}

func (d Dependents) Empty() bool {
	return len(d.Parameters) == 0 && len(d.Processes) == 0 && len(d.Compartments) == 0
}

// All returns every dependent name, sorted.
func (d Dependents) All() []string {
	all := make([]string, 0, len(d.Parameters)+len(d.Processes)+len(d.Compartments))
	all = append(all, d.Parameters...)
	all = append(all, d.Processes...)
	all = append(all, d.Compartments...)
	sort.Strings(all)
	return all
}
