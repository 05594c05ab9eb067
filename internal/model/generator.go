package model

import (
	"fmt"
	"strings"
)

// NameSeparator joins category names into compartment names.
const NameSeparator = "_"

// CompartmentName joins one category per division, in division order.
func CompartmentName(categories []string) string {
	return strings.Join(categories, NameSeparator)
}

// product returns the Cartesian product of the given category lists,
// the last list iterating fastest. The result is empty if any list is.
func product(categories [][]string) [][]string {
	if len(categories) == 0 {
		return nil
	}
	total := 1
	for _, cats := range categories {
		total *= len(cats)
	}
	out := make([][]string, 0, total)
	idx := make([]int, len(categories))
	for n := 0; n < total; n++ {
		combo := make([]string, len(categories))
		for d, i := range idx {
			combo[d] = categories[d][i]
		}
		out = append(out, combo)

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(categories[d]) {
				break
			}
			idx[d] = 0
		}
	}
	return out
}

// Generate derives the ordered compartment names for the given divisions.
// With a single division the compartments are its categories.
func Generate(divisions []*Division) []string {
	combos := product(categoryNames(divisions, nil))
	names := make([]string, len(combos))
	for i, c := range combos {
		names[i] = CompartmentName(c)
	}
	return names
}

// Combinations derives the compartment names compatible with a partial category
// assignment, division name to category name. Unassigned divisions expand
// over all their categories.
func Combinations(divisions []*Division, partial map[string]string) ([]string, error) {
	for div, cat := range partial {
		d := findDivision(divisions, div)
		if d == nil {
			return nil, fmt.Errorf("%w: division %q", ErrUnknownEntity, div)
		}
		if findCategory(d, cat) == nil {
			return nil, fmt.Errorf("%w: category %q in division %q", ErrUnknownEntity, cat, div)
		}
	}
	combos := product(categoryNames(divisions, partial))
	names := make([]string, len(combos))
	for i, c := range combos {
		names[i] = CompartmentName(c)
	}
	return names, nil
}

// Shortcuts maps every category of a non-principal division to the
// names of the compartments carrying it, in compartment order.
func Shortcuts(divisions []*Division) map[string][]string {
	members := make(map[string][]string)
	if len(divisions) < 2 {
		return members
	}
	combos := product(categoryNames(divisions, nil))
	for _, combo := range combos {
		name := CompartmentName(combo)
		for _, cat := range combo[1:] {
			members[cat] = append(members[cat], name)
		}
	}
	return members
}

func categoryNames(divisions []*Division, partial map[string]string) [][]string {
	out := make([][]string, len(divisions))
	for i, d := range divisions {
		if cat, ok := partial[d.Name]; ok {
			out[i] = []string{cat}
			continue
		}
		for _, c := range d.Categories {
			out[i] = append(out[i], c.Name)
		}
	}
	return out
}

func findDivision(divisions []*Division, name string) *Division {
	for _, d := range divisions {
		if d.Name == name {
			return d
		}
	}
	return nil
}

func findCategory(d *Division, name string) *Category {
	for _, c := range d.Categories {
		if c.Name == name {
			return c
		}
	}
	return nil
}
