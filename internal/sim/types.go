package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/episim/internal/integrators"
)

var (
	// ErrBusy is returned when a Runner already has an active task.
	ErrBusy = errors.New("sim: a simulation is already running")
	// ErrConfig reports an unusable run configuration.
	ErrConfig = errors.New("sim: invalid configuration")
)

// Status is the lifecycle state of a task.
type Status int32

const (
	Idle Status = iota
	Running
	Completed
	Cancelled
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}

type Config struct {
	Method  integrators.Method
	Horizon float64
	// Dt is the fixed step, or the initial step of adaptive methods.
	Dt         float64
	Tolerance  float64
	MinDt      float64
	MaxDt      float64
	Stride     int
	MaxRetries int
}

func DefaultConfig() Config {
	opts := integrators.DefaultOptions()
	return Config{
		Method:     integrators.RK4,
		Horizon:    100,
		Dt:         0.1,
		Tolerance:  opts.Tolerance,
		MinDt:      opts.MinDt,
		MaxDt:      opts.MaxDt,
		Stride:     1,
		MaxRetries: opts.MaxRetries,
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.Horizon > 0) || math.IsInf(c.Horizon, 0):
		return fmt.Errorf("%w: horizon must be positive, got %g", ErrConfig, c.Horizon)
	case !(c.Dt > 0):
		return fmt.Errorf("%w: dt must be positive, got %g", ErrConfig, c.Dt)
	case c.Stride < 0:
		return fmt.Errorf("%w: stride must not be negative, got %d", ErrConfig, c.Stride)
	case c.Method.Adaptive() && !(c.Tolerance > 0):
		return fmt.Errorf("%w: tolerance must be positive for %s", ErrConfig, c.Method)
	case c.MaxDt < 0 || c.MinDt < 0:
		return fmt.Errorf("%w: step bounds must not be negative", ErrConfig)
	case c.MaxDt > 0 && c.MinDt > c.MaxDt:
		return fmt.Errorf("%w: min dt %g exceeds max dt %g", ErrConfig, c.MinDt, c.MaxDt)
	}
	return nil
}

// Options returns the step-size control of the configuration.
func (c Config) Options() integrators.Options {
	return integrators.Options{
		Tolerance:  c.Tolerance,
		MinDt:      c.MinDt,
		MaxDt:      c.MaxDt,
		MaxRetries: c.MaxRetries,
	}
}

// Sink receives sampled states.
type Sink interface {
	AppendSample(t float64, values []float64) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(t float64, values []float64) error

func (f SinkFunc) AppendSample(t float64, values []float64) error { return f(t, values) }

type EventKind int

const (
	EventStarted EventKind = iota
	EventSample
	EventProgress
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSample:
		return "sample"
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// Event is published by a running task. Values is only set for samples,
// Summary only for EventDone.
type Event struct {
	Kind     EventKind
	Time     float64
	Values   []float64
	Progress float64
	Summary  *Summary
}

type Summary struct {
	Status      Status
	Steps       int
	Rejected    int
	Evaluations int
	Samples     int
	FinalTime   float64
	Final       []float64
	Metrics     map[string]float64
	Err         error
}
