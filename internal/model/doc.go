// Package model holds the compartmental model a user authors and keeps its
// cross-referencing definitions consistent.
//
// A [Model] owns:
//
//   - the [Population] and its ordered divisions and categories
//   - the generated compartments and shortcuts (see [Generate])
//   - the ordered parameters and processes
//   - a [Registry] of every name in the single flat namespace
//   - a [Graph] of references between entities, keyed by stable IDs
//
// Definitions stay editable text. The graph records, for every entity, the
// entities its definitions reference and, inversely, who references it, so
// delete and reorder checks are map lookups and renames only rewrite the
// definitions that actually mention the renamed entity.
//
// All mutations validate first and leave the model untouched on error.
package model
