package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/models"
)

// Registry maps names to example models, integrators and run metrics.
type Registry struct {
	models      map[string]func() (*model.Model, error)
	integrators map[string]integrators.Method
	metrics     map[string]func(*model.Model) dynamo.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() (*model.Model, error)),
		integrators: make(map[string]integrators.Method),
		metrics:     make(map[string]func(*model.Model) dynamo.Metric),
	}

	for name, ex := range models.Examples {
		r.models[name] = ex.New
	}

	for _, m := range integrators.Methods() {
		r.integrators[m.String()] = m
	}

	r.metrics["population_drift"] = func(*model.Model) dynamo.Metric { return metrics.NewPopulationDrift() }
	r.metrics["negative_excursion"] = func(*model.Model) dynamo.Metric { return metrics.NewNegativeExcursion() }
	r.metrics["plausibility"] = func(m *model.Model) dynamo.Metric {
		return metrics.NewPlausibility(m.Population.Habitants)
	}

	return r
}

func (r *Registry) GetModel(name string) (*model.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn()
}

// GetIntegrator accepts canonical names and the aliases ParseMethod knows.
func (r *Registry) GetIntegrator(name string) (integrators.Method, error) {
	if m, ok := r.integrators[name]; ok {
		return m, nil
	}
	return integrators.ParseMethod(name)
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

// DefaultMetrics returns fresh instances of every registered metric for m.
func (r *Registry) DefaultMetrics(m *model.Model) []dynamo.Metric {
	out := make([]dynamo.Metric, 0, len(r.metrics))
	for _, name := range sortedKeys(r.metrics) {
		out = append(out, r.metrics[name](m))
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
