package experiment

import (
	"context"

	"github.com/san-kum/episim/internal/compartmental"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/sim"
)

// Comparison is the outcome of one integrator on a shared model. Deviation
// is the largest absolute difference of the final state from the one of
// the first compared method.
type Comparison struct {
	Method    integrators.Method
	Summary   *sim.Summary
	Final     dynamo.State
	Deviation float64
}

// Compare runs m once per method, concurrently, with otherwise identical
// settings. Each run gets its own evaluator since evaluators hold state.
func (e *Experiment) Compare(ctx context.Context, m *model.Model, methods []integrators.Method) ([]Comparison, error) {
	ens := sim.NewEnsemble(0)
	for _, method := range methods {
		sys, err := compartmental.New(m)
		if err != nil {
			return nil, err
		}
		cfg := e.cfg.Run
		cfg.Method = method
		task := sim.NewTask(sys, dynamo.State(m.InitialState()), cfg)
		for _, mt := range e.cfg.Registry.DefaultMetrics(m) {
			task.AddMetric(mt)
		}
		ens.Add(task)
	}

	summaries, err := ens.Run(ctx)

	out := make([]Comparison, len(methods))
	for i, sum := range summaries {
		out[i] = Comparison{Method: methods[i], Summary: sum}
		if sum == nil {
			continue
		}
		out[i].Final = sum.Final
		if e.cfg.Collectors != nil {
			e.cfg.Collectors.Record(methods[i].String(), sum)
		}
	}
	if len(out) > 0 && out[0].Final != nil {
		for i := range out {
			if out[i].Final != nil && len(out[i].Final) == len(out[0].Final) {
				out[i].Deviation = out[i].Final.MaxAbsDiff(out[0].Final)
			}
		}
	}
	log.Info("compared {{count}} integrators on {{model}}", "count", len(methods), "model", m.Population.Name)
	return out, err
}
