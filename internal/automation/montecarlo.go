package automation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/optim"
	"github.com/san-kum/episim/internal/sim"
)

// MonteCarloConfig scales each named parameter by an independent factor
// drawn uniformly from [1-Spread, 1+Spread] in every trial.
type MonteCarloConfig struct {
	Params []string
	Spread float64
	Trials int
	Seed   int64
}

// Trial is one perturbed run.
type Trial struct {
	ID      int
	Factors map[string]float64
	Value   float64
	Status  sim.Status
	Err     error
}

// Stats summarizes the objective over the completed trials.
type Stats struct {
	N                int
	Mean, Std        float64
	Min, Max         float64
	P05, Median, P95 float64
}

// RunMonteCarlo executes the trials sequentially. A failing trial is
// recorded and the study continues; only cancellation stops it early.
func RunMonteCarlo(ctx context.Context, doc *document.Document, cfg MonteCarloConfig, base experiment.Config, objective optim.Objective) ([]Trial, error) {
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("monte carlo: trials must be positive, got %d", cfg.Trials)
	}
	if cfg.Spread < 0 || cfg.Spread >= 1 {
		return nil, fmt.Errorf("monte carlo: spread must be in [0, 1), got %g", cfg.Spread)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	base.Autosave, base.Store, base.Catalog = nil, nil, nil

	trials := make([]Trial, 0, cfg.Trials)
	for i := 0; i < cfg.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return trials, err
		}
		tr := Trial{ID: i, Factors: make(map[string]float64, len(cfg.Params)), Value: math.Inf(1)}
		for _, name := range cfg.Params {
			tr.Factors[name] = 1 + cfg.Spread*(2*rng.Float64()-1)
		}
		tr.Status, tr.Value, tr.Err = runTrial(ctx, doc, tr.Factors, base, objective)
		trials = append(trials, tr)

		if (i+1)%10 == 0 {
			log.Debug("monte carlo: {{done}}/{{total}} trials complete", "done", i+1, "total", cfg.Trials)
		}
	}
	return trials, nil
}

func runTrial(ctx context.Context, doc *document.Document, factors map[string]float64, base experiment.Config, objective optim.Objective) (sim.Status, float64, error) {
	m, err := doc.Model()
	if err != nil {
		return sim.Failed, math.Inf(1), err
	}
	for name, f := range factors {
		p, ok := m.Parameter(name)
		if !ok {
			return sim.Failed, math.Inf(1), fmt.Errorf("unknown parameter %q", name)
		}
		if err := m.SetParameterDefinition(name, fmt.Sprintf("(%s)*%v", p.Definition, f)); err != nil {
			return sim.Failed, math.Inf(1), err
		}
	}

	exp := experiment.New(base)
	if err := exp.Setup(m); err != nil {
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
	return out.Summary.Status, v, err
}

// Describe summarizes the values of the completed trials.
func Describe(trials []Trial) Stats {
	var values []float64
	for _, tr := range trials {
		if tr.Err == nil && tr.Status == sim.Completed {
			values = append(values, tr.Value)
		}
	}
	st := Stats{N: len(values)}
	if st.N == 0 {
		return st
	}
	sort.Float64s(values)

	var sum float64
	for _, v := range values {
		sum += v
	}
	st.Mean = sum / float64(st.N)
	var sq float64
	for _, v := range values {
		sq += (v - st.Mean) * (v - st.Mean)
	}
	if st.N > 1 {
		st.Std = math.Sqrt(sq / float64(st.N-1))
	}
	st.Min, st.Max = values[0], values[st.N-1]
	st.P05 = quantile(values, 0.05)
	st.Median = quantile(values, 0.5)
	st.P95 = quantile(values, 0.95)
	return st
}

// quantile interpolates linearly between the order statistics of sorted.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
