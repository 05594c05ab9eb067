// Package expression wraps expr-lang/expr as the algebraic evaluator used by
// compartment, parameter and process definitions.
//
// Every variable is a float64. Definitions are compiled once against the set
// of names that is legal at the owning entity's position and then run many
// times against an [Evaluator] whose bindings change between calls:
//
//	prog, err := expression.Compile("-beta*S*I/N", []string{"beta", "S", "I", "N"})
//	ev := expression.NewEvaluator()
//	ev.Bind("beta", 0.3)
//	v, err := ev.Evaluate(prog)
//
// The package also owns the tokenizer used by the dependency graph:
// [Identifiers] strips numeric literals and the built-in vocabulary before
// reporting referenced names, and [RenameToken] performs whole-token
// substitution so that renaming "mu" never touches "mu1".
package expression
