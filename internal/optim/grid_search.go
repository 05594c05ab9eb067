// Package optim sweeps model parameters over a grid and keeps the point
// that minimizes an objective.
package optim

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/episim/internal/analysis"
	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/sim"
)

// Objective scores a finished run; lower is better.
type Objective func(out *experiment.Outcome) (float64, error)

// MetricObjective scores a run by one of its metrics.
func MetricObjective(name string) Objective {
	return func(out *experiment.Outcome) (float64, error) {
		v, ok := out.Summary.Metrics[name]
		if !ok {
			return 0, fmt.Errorf("optim: run has no metric %q", name)
		}
		return v, nil
	}
}

// PeakObjective scores a run by the peak of a compartment.
func PeakObjective(label string) Objective {
	return func(out *experiment.Outcome) (float64, error) {
		peaks, err := analysis.Peaks(out.Result)
		if err != nil {
			return 0, err
		}
		for _, p := range peaks {
			if p.Label == label {
				return p.Value, nil
			}
		}
		return 0, fmt.Errorf("optim: unknown compartment %q", label)
	}
}

// FinalObjective scores a run by the final value of a compartment.
func FinalObjective(label string) Objective {
	return func(out *experiment.Outcome) (float64, error) {
		col, ok := out.Result.Column(label)
		if !ok || len(col) == 0 {
			return 0, fmt.Errorf("optim: unknown compartment %q", label)
		}
		return col[len(col)-1], nil
	}
}

// ParseObjective reads "peak:<compartment>", "final:<compartment>" or a
// metric name.
func ParseObjective(s string) (Objective, error) {
	kind, arg, found := strings.Cut(s, ":")
	if !found {
		if s == "" {
			return nil, fmt.Errorf("optim: empty objective")
		}
		return MetricObjective(s), nil
	}
	if arg == "" {
		return nil, fmt.Errorf("optim: objective %q lacks an argument", s)
	}
	switch kind {
	case "peak":
		return PeakObjective(arg), nil
	case "final":
		return FinalObjective(arg), nil
	case "metric":
		return MetricObjective(arg), nil
	}
	return nil, fmt.Errorf("optim: unknown objective kind %q", kind)
}

// ParseRange reads "name=v1,v2,...".
func ParseRange(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("optim: expected name=v1,v2,... got %q", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("optim: %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

// Point is one evaluated parameter combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Status sim.Status
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs every combination of the grid. Points whose run fails or
// does not complete are reported but never chosen as best. best is nil
// when no point completed.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (*Point, []Point, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}

	var points []Point
	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &points)

	var best *Point
	for i := range points {
		p := &points[i]
		if p.Err != nil || p.Status != sim.Completed {
			continue
		}
		if best == nil || p.Value < best.Value {
			best = p
		}
	}
	return best, points, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		p := Point{Params: maps.Clone(current), Value: math.Inf(1)}
		p.Status, p.Value, p.Err = evaluate(ctx, current, buildExperiment, objective)
		if p.Err != nil {
			log.Debug("point {{params}} rejected: {{error}}", "params", current, "error", p.Err)
		}
		*points = append(*points, p)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := maps.Clone(current)
		newParams[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, points); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(
	ctx context.Context,
	params map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (sim.Status, float64, error) {
	exp, err := buildExperiment(params)
	if err != nil {
		return sim.Failed, math.Inf(1), err
	}
	out, err := exp.Run(ctx)
	if out == nil {
		return sim.Failed, math.Inf(1), err
	}
	if err != nil {
		return out.Summary.Status, math.Inf(1), err
	}
	v, err := objective(out)
	if err != nil {
		return out.Summary.Status, math.Inf(1), err
	}
	return out.Summary.Status, v, nil
}

// DocumentBuilder builds a fresh model from doc for every point and
// overrides the swept parameters with constant definitions.
func DocumentBuilder(doc *document.Document, cfg experiment.Config) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		m, err := doc.Model()
		if err != nil {
			return nil, err
		}
		for name, v := range params {
			if err := m.SetParameterDefinition(name, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
				return nil, fmt.Errorf("parameter %q: %w", name, err)
			}
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(m); err != nil {
			return nil, err
		}
		return exp, nil
	}
}
