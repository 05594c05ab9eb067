package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs independent tasks concurrently, for example the same model
// under several integrators. Tasks must not share systems that hold
// evaluation state.
type Ensemble struct {
	tasks []*Task
	limit int
}

// NewEnsemble creates an ensemble running at most limit tasks at once; a
// limit below one means no limit.
func NewEnsemble(limit int, tasks ...*Task) *Ensemble {
	return &Ensemble{tasks: tasks, limit: limit}
}

func (e *Ensemble) Add(t *Task) { e.tasks = append(e.tasks, t) }

// Run executes every task and returns their summaries in order. A failing
// task does not stop the others; its error is joined into the result.
// Cancelling ctx cancels every task still running.
func (e *Ensemble) Run(ctx context.Context) ([]*Summary, error) {
	summaries := make([]*Summary, len(e.tasks))
	errs := make([]error, len(e.tasks))

	var g errgroup.Group
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, task := range e.tasks {
		i, task := i, task
		g.Go(func() error {
			summaries[i], errs[i] = task.Run(ctx)
			return nil
		})
	}
	_ = g.Wait()

	log.Debug("ensemble of {{count}} runs finished", "count", len(e.tasks))
	return summaries, errors.Join(errs...)
}
