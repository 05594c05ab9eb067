// Package experiment runs models end to end: it validates, snapshots,
// integrates, archives and records telemetry.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/episim/internal/autosave"
	"github.com/san-kum/episim/internal/compartmental"
	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/results"
	"github.com/san-kum/episim/internal/sim"
	"github.com/san-kum/episim/internal/storage"
)

// Config selects the run settings and the optional collaborators of an
// experiment. Nil collaborators are skipped.
type Config struct {
	Run        sim.Config
	Autosave   *autosave.Autosave
	Store      *storage.Store
	Catalog    *storage.Catalog
	Collectors *metrics.Collectors
	Registry   *Registry
}

// Outcome is a finished run.
type Outcome struct {
	RunID   string
	Summary *sim.Summary
	Result  *results.Result
	Extra   []*results.Result
}

type Experiment struct {
	cfg    Config
	model  *model.Model
	system *compartmental.System
	task   *sim.Task
	result *results.Result
	extra  []*results.Result
	start  time.Time
}

func New(cfg Config) *Experiment {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	return &Experiment{cfg: cfg}
}

// Setup prepares a run of m. Extra results receive every sample besides
// the primary result over all compartments.
func (e *Experiment) Setup(m *model.Model, extra ...*results.Result) error {
	sys, err := compartmental.New(m)
	if err != nil {
		return err
	}
	e.model, e.system = m, sys
	e.result = results.New(m.Population.Name, sys.Labels())
	e.extra = extra

	e.task = sim.NewTask(sys, dynamo.State(m.InitialState()), e.cfg.Run)
	e.task.AddSink(e.result)
	for _, r := range extra {
		e.task.AddSink(r)
	}
	for _, mt := range e.cfg.Registry.DefaultMetrics(m) {
		e.task.AddMetric(mt)
	}
	return nil
}

// Task returns the prepared task, for example to attach observers.
func (e *Experiment) Task() *sim.Task { return e.task }

// System returns the derivative evaluator of the prepared model.
func (e *Experiment) System() *compartmental.System { return e.system }

// begin snapshots the model before the task starts.
func (e *Experiment) begin(extra []*results.Result) error {
	if e.task == nil {
		return fmt.Errorf("experiment not setup")
	}
	e.start = time.Now()
	if e.cfg.Autosave != nil {
		e.cfg.Autosave.Write(document.FromModel(e.model, extra...))
	}
	return nil
}

// Run integrates synchronously and archives the run. The outcome is
// returned for cancelled and failed runs too, together with their error.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	if err := e.begin(e.extra); err != nil {
		return nil, err
	}
	sum, err := e.task.Run(ctx)
	if sum == nil {
		return nil, err
	}
	return e.Finish(ctx, sum)
}

// Start runs the task on r and returns its event stream. The caller passes
// the summary of the done event to Finish.
func (e *Experiment) Start(ctx context.Context, r *sim.Runner) (<-chan sim.Event, error) {
	if err := e.begin(e.extra); err != nil {
		return nil, err
	}
	events, err := r.Start(ctx, e.task)
	if err != nil && e.cfg.Autosave != nil {
		e.cfg.Autosave.Remove()
	}
	return events, err
}

// Finish removes the autosave snapshot and records a terminated run. The
// records are written even when ctx, typically the run's own context, has
// been cancelled.
func (e *Experiment) Finish(ctx context.Context, sum *sim.Summary) (*Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	if sum == nil {
		return nil, fmt.Errorf("experiment: no summary")
	}
	if e.cfg.Autosave != nil {
		e.cfg.Autosave.Finish(sum.Status)
	}
	out := &Outcome{Summary: sum, Result: e.result, Extra: e.extra}
	method := e.cfg.Run.Method.String()
	if e.cfg.Collectors != nil {
		e.cfg.Collectors.Record(method, sum)
	}

	logger := log.WithValues("model", e.model.Population.Name, "method", method)
	if e.cfg.Store != nil {
		meta := e.metadata(sum)
		id, err := e.cfg.Store.Save(meta, e.result)
		if err != nil {
			return out, errors.Join(sum.Err, fmt.Errorf("archiving run: %w", err))
		}
		out.RunID, meta.ID = id, id
		if e.cfg.Catalog != nil {
			if err := e.cfg.Catalog.Record(ctx, meta); err != nil {
				logger.LogError(err, "cannot catalog run {{run}}", "run", id)
			}
		}
	}
	logger.Info("run {{run}} {{status}} at t={{time}}", "run", out.RunID, "status", sum.Status, "time", sum.FinalTime)
	return out, sum.Err
}

func (e *Experiment) metadata(sum *sim.Summary) storage.RunMetadata {
	cfg := e.cfg.Run
	meta := storage.RunMetadata{
		Model:     e.model.Population.Name,
		Timestamp: e.start,
		Method:    cfg.Method.String(),
		Dt:        cfg.Dt,
		Horizon:   cfg.Horizon,
		Status:    sum.Status.String(),
		Steps:     sum.Steps,
		Rejected:  sum.Rejected,
		FinalTime: sum.FinalTime,
		Metrics:   sum.Metrics,
	}
	if cfg.Method.Adaptive() {
		meta.Tolerance = cfg.Tolerance
	}
	if sum.Err != nil {
		meta.Error = sum.Err.Error()
	}
	return meta
}
