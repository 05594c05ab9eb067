package expression

import (
	"fmt"
	"math"
	"sort"

	"github.com/expr-lang/expr"
)

// TimeVariable is bound to the current simulation time in every definition.
const TimeVariable = "t"

type function struct {
	arity int
	fn    func(args []float64) float64
}

var functions = map[string]function{
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  unary(math.Asin),
	"acos":  unary(math.Acos),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"exp":   unary(math.Exp),
	"ln":    unary(math.Log),
	"log":   unary(math.Log),
	"log10": unary(math.Log10),
	"sqrt":  unary(math.Sqrt),
	"atan2": binary(math.Atan2),
	"pow":   binary(math.Pow),
	"sign": unary(func(x float64) float64 {
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		}
		return 0
	}),
	// step is the Heaviside function, 1 for x >= 0.
	"step": unary(func(x float64) float64 {
		if x >= 0 {
			return 1
		}
		return 0
	}),
}

// Names provided by expr itself that definitions may use or must not shadow.
var exprBuiltins = []string{
	"abs", "ceil", "floor", "round", "max", "min", "mean", "median", "sum",
	"int", "float", "len", "all", "none", "any", "one", "filter", "map",
	"count", "reduce", "first", "last", "get", "now", "duration", "date",
	"string", "type", "keys", "values",
}

var keywords = []string{
	"true", "false", "nil", "and", "or", "not", "in", "matches",
	"contains", "startsWith", "endsWith", "let", "if", "else",
}

var builtinSet = func() map[string]bool {
	set := make(map[string]bool)
	for name := range functions {
		set[name] = true
	}
	for _, name := range exprBuiltins {
		set[name] = true
	}
	for _, name := range keywords {
		set[name] = true
	}
	return set
}()

// IsBuiltin reports whether name belongs to the fixed function and keyword
// vocabulary of the evaluator.
func IsBuiltin(name string) bool { return builtinSet[name] }

// Reserved returns every name user entities may not take, sorted.
func Reserved() []string {
	names := make([]string, 0, len(builtinSet)+1)
	for name := range builtinSet {
		names = append(names, name)
	}
	names = append(names, TimeVariable)
	sort.Strings(names)
	return names
}

func unary(f func(float64) float64) function {
	return function{arity: 1, fn: func(a []float64) float64 { return f(a[0]) }}
}

func binary(f func(float64, float64) float64) function {
	return function{arity: 2, fn: func(a []float64) float64 { return f(a[0], a[1]) }}
}

func functionOptions() []expr.Option {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := make([]expr.Option, 0, len(names))
	for _, name := range names {
		name, f := name, functions[name]
		opts = append(opts, expr.Function(name, func(params ...any) (any, error) {
			if len(params) != f.arity {
				return nil, fmt.Errorf("%s expects %d argument(s), got %d", name, f.arity, len(params))
			}
			args := make([]float64, len(params))
			for i, p := range params {
				v, err := toFloat(p)
				if err != nil {
					return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
				}
				args[i] = v
			}
			return f.fn(args), nil
		}))
	}
	return opts
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("not a number: %v (%T)", v, v)
}
