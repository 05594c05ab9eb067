package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/san-kum/episim/internal/dynamo"
	"github.com/san-kum/episim/internal/integrators"
)

// Task integrates one system from an initial state up to a horizon. A task
// runs once.
type Task struct {
	sys dynamo.System
	x0  dynamo.State
	cfg Config

	sinks     []Sink
	observers []dynamo.Observer
	metrics   []dynamo.Metric
	events    chan<- Event
	// finished runs after the terminal status is set, before the done event.
	finished func()

	status atomic.Int32
}

func NewTask(sys dynamo.System, x0 dynamo.State, cfg Config) *Task {
	return &Task{
		sys: sys,
		x0:  x0.Clone(),
		cfg: cfg,
	}
}

func (t *Task) AddSink(s Sink)                { t.sinks = append(t.sinks, s) }
func (t *Task) AddObserver(o dynamo.Observer) { t.observers = append(t.observers, o) }
func (t *Task) AddMetric(m dynamo.Metric)     { t.metrics = append(t.metrics, m) }
func (t *Task) Config() Config                { return t.cfg }
func (t *Task) Status() Status                { return Status(t.status.Load()) }

// Notify makes the task publish its events on ch. Sample and done events
// are delivered; progress events are dropped while ch is full. The done
// event blocks until it is read, see [Drain].
func (t *Task) Notify(ch chan<- Event) { t.events = ch }

func (t *Task) emit(ctx context.Context, ev Event) {
	if t.events == nil {
		return
	}
	switch ev.Kind {
	case EventProgress:
		select {
		case t.events <- ev:
		default:
		}
	case EventDone:
		t.events <- ev
	default:
		select {
		case t.events <- ev:
		case <-ctx.Done():
		}
	}
}

// Run integrates synchronously. Cancellation is checked once per step
// before advancing; a cancelled run publishes no further samples. The
// returned error is the summary's error.
func (t *Task) Run(ctx context.Context) (*Summary, error) {
	if !t.status.CompareAndSwap(int32(Idle), int32(Running)) {
		return nil, fmt.Errorf("sim: task already %s", t.Status())
	}
	sum := t.run(ctx)
	t.status.Store(int32(sum.Status))
	if t.finished != nil {
		t.finished()
	}
	done := Event{Kind: EventDone, Time: sum.FinalTime, Summary: sum}
	if t.cfg.Horizon > 0 {
		done.Progress = sum.FinalTime / t.cfg.Horizon
	}
	t.emit(ctx, done)
	return sum, sum.Err
}

func (t *Task) run(ctx context.Context) *Summary {
	sum := &Summary{Status: Failed, Metrics: make(map[string]float64)}
	if err := t.cfg.Validate(); err != nil {
		sum.Err = err
		return sum
	}
	if len(t.x0) != t.sys.StateDim() {
		sum.Err = fmt.Errorf("%w: state has %d components, system %d", dynamo.ErrDimensionMismatch, len(t.x0), t.sys.StateDim())
		return sum
	}

	logger := log.WithValues("method", t.cfg.Method, "horizon", t.cfg.Horizon)
	logger.Debug("starting run with dt {{dt}}", "dt", t.cfg.Dt)
	t.emit(ctx, Event{Kind: EventStarted})

	for _, m := range t.metrics {
		m.Reset()
	}

	integ := integrators.New(t.cfg.Method, t.cfg.Options())
	stride := max(t.cfg.Stride, 1)
	horizon := t.cfg.Horizon
	eps := 1e-12 * math.Max(1, horizon)

	x := t.x0.Clone()
	now, dt := 0.0, t.cfg.Dt

	finish := func(status Status, err error) *Summary {
		sum.Status, sum.Err = status, err
		sum.FinalTime, sum.Final = now, x.Clone()
		for _, m := range t.metrics {
			sum.Metrics[m.Name()] = m.Value()
		}
		return sum
	}
	// sampled finishes a run whose sample could not be taken: cancelled when
	// ctx ended, failed when a sink refused it.
	sampled := func(err error) *Summary {
		if errors.Is(err, dynamo.ErrContextCanceled) {
			logger.Info("run cancelled at t={{time}} after {{steps}} steps", "time", now, "steps", sum.Steps)
			return finish(Cancelled, err)
		}
		logger.LogError(err, "run failed at t={{time}}", "time", now)
		return finish(Failed, err)
	}

	t.observe(x, now)
	if err := t.sample(ctx, sum, now, x); err != nil {
		return sampled(err)
	}

	for horizon-now > eps {
		if err := ctx.Err(); err != nil {
			logger.Info("run cancelled at t={{time}} after {{steps}} steps", "time", now, "steps", sum.Steps)
			return finish(Cancelled, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err))
		}

		step, err := integ.Advance(t.sys, x, now, math.Min(dt, horizon-now))
		if err != nil {
			var simErr *dynamo.SimulationError
			if errors.As(err, &simErr) {
				simErr.Step = sum.Steps
			} else {
				err = &dynamo.SimulationError{Step: sum.Steps, Time: now, State: x.Clone(), Wrapped: err}
			}
			logger.LogError(err, "run failed at t={{time}}", "time", now)
			return finish(Failed, err)
		}
		if !step.State.IsValid() {
			err := &dynamo.SimulationError{Step: sum.Steps, Time: step.T, State: step.State, Wrapped: dynamo.ErrInvalidState}
			logger.LogError(err, "run failed at t={{time}}", "time", now)
			return finish(Failed, err)
		}

		x, now = step.State, step.T
		sum.Steps++
		sum.Rejected += step.Rejected
		sum.Evaluations += step.Evaluations
		if t.cfg.Method.Adaptive() && step.Next > 0 {
			dt = step.Next
		}
		t.observe(x, now)

		if sum.Steps%stride == 0 || horizon-now <= eps {
			if err := t.sample(ctx, sum, now, x); err != nil {
				return sampled(err)
			}
		}
		t.emit(ctx, Event{Kind: EventProgress, Time: now, Progress: now / horizon})
	}

	logger.Info("run completed: {{steps}} steps, {{rejected}} rejected", "steps", sum.Steps, "rejected", sum.Rejected)
	return finish(Completed, nil)
}

func (t *Task) observe(x dynamo.State, now float64) {
	for _, m := range t.metrics {
		m.Observe(x, now)
	}
	for _, o := range t.observers {
		o.OnStep(x, now)
	}
}

// sample delivers x to every sink. Once ctx has ended no sample is taken
// and the cancellation is returned, so the horizon sample is never skipped
// silently.
func (t *Task) sample(ctx context.Context, sum *Summary, now float64, x dynamo.State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
	}
	for _, s := range t.sinks {
		if err := s.AppendSample(now, x.Clone()); err != nil {
			return fmt.Errorf("sample at t=%g: %w", now, err)
		}
	}
	sum.Samples++
	t.emit(ctx, Event{Kind: EventSample, Time: now, Values: x.Clone(), Progress: now / t.cfg.Horizon})
	return nil
}

// Drain consumes events until the stream is closed and returns the summary
// of the done event, nil if there was none. Consumers that stop reading
// early drain the rest so the task can deliver its done event and exit.
func Drain(events <-chan Event) *Summary {
	var sum *Summary
	for ev := range events {
		if ev.Kind == EventDone {
			sum = ev.Summary
		}
	}
	return sum
}

// Runner executes tasks on a background goroutine, one at a time.
type Runner struct {
	mu     sync.Mutex
	active *Task
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner() *Runner { return &Runner{} }

// Start runs task in the background and returns its event stream, closed
// after the done event. It fails with ErrBusy while another task runs.
func (r *Runner) Start(ctx context.Context, task *Task) (<-chan Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrBusy
	}
	if st := task.Status(); st != Idle {
		return nil, fmt.Errorf("sim: task already %s", st)
	}

	ctx, cancel := context.WithCancel(ctx)
	events := make(chan Event, 64)
	done := make(chan struct{})
	task.Notify(events)
	task.finished = func() {
		r.mu.Lock()
		r.active, r.cancel = nil, nil
		r.mu.Unlock()
	}
	r.active, r.cancel, r.done = task, cancel, done

	go func() {
		defer close(done)
		defer close(events)
		defer cancel()
		_, _ = task.Run(ctx)
	}()
	return events, nil
}

// Cancel requests cancellation of the active task, if any.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Active returns the running task, nil when idle.
func (r *Runner) Active() *Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Wait blocks until the most recently started task has finished.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}
