package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/episim/internal/dynamo"
)

// Method selects one member of the integrator family.
type Method int

const (
	Euler Method = iota
	Heun
	RK4
	EulerPC
	RKF45
)

var methodNames = map[Method]string{
	Euler:   "euler",
	Heun:    "heun",
	RK4:     "rk4",
	EulerPC: "euler-pc",
	RKF45:   "rkf45",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Adaptive reports whether the method controls its own step size.
func (m Method) Adaptive() bool { return m == RKF45 }

// Evaluations is the number of derivative evaluations per attempted step.
func (m Method) Evaluations() int {
	switch m {
	case Euler:
		return 1
	case Heun, EulerPC:
		return 2
	case RK4:
		return 4
	case RKF45:
		return 6
	}
	return 0
}

// Methods lists every method in declaration order.
func Methods() []Method {
	return []Method{Euler, Heun, RK4, EulerPC, RKF45}
}

// ParseMethod maps a method name to its Method. A few historical aliases
// are accepted.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euler":
		return Euler, nil
	case "heun", "rk2":
		return Heun, nil
	case "rk4", "runge-kutta":
		return RK4, nil
	case "euler-pc", "eulerpc", "predictor-corrector":
		return EulerPC, nil
	case "rkf45", "rk45", "fehlberg", "adaptive":
		return RKF45, nil
	}
	return 0, fmt.Errorf("unknown integrator: %s", name)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if _, ok := methodNames[m]; !ok {
		return nil, fmt.Errorf("unknown integrator: %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options configures step-size control. Only RKF45 reads them.
type Options struct {
	Tolerance  float64
	MinDt      float64
	MaxDt      float64
	MaxRetries int
}

func DefaultOptions() Options {
	return Options{
		Tolerance:  1e-6,
		MinDt:      1e-9,
		MaxDt:      0,
		MaxRetries: 64,
	}
}

// Integrator advances a system with one method. It keeps scratch buffers
// between calls and is not safe for concurrent use.
type Integrator struct {
	method Method
	opts   Options

	k      [6]dynamo.State
	stage  dynamo.State
	safety float64
	grow   float64
	shrink float64
}

func New(method Method, opts Options) *Integrator {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultOptions().MaxRetries
	}
	return &Integrator{
		method: method,
		opts:   opts,
		safety: 0.9,
		grow:   5.0,
		shrink: 0.1,
	}
}

func (in *Integrator) Method() Method { return in.method }

func (in *Integrator) Options() Options { return in.opts }

func (in *Integrator) ensureScratch(n int) {
	if len(in.stage) != n {
		for i := range in.k {
			in.k[i] = make(dynamo.State, n)
		}
		in.stage = make(dynamo.State, n)
	}
}

// Advance takes one step of size dt from (x, t). Fixed-step methods always
// use dt; RKF45 may take a smaller step and suggests the next one. x is
// never modified. Derivative failures are returned unchanged.
func (in *Integrator) Advance(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.Step, error) {
	if len(x) != sys.StateDim() {
		return dynamo.Step{}, dynamo.ErrDimensionMismatch
	}
	if dt <= 0 {
		return dynamo.Step{}, fmt.Errorf("dt must be positive, got %g", dt)
	}
	in.ensureScratch(len(x))

	var (
		next dynamo.State
		err  error
	)
	switch in.method {
	case Euler:
		next, err = in.euler(sys, x, t, dt)
	case Heun:
		next, err = in.heun(sys, x, t, dt)
	case RK4:
		next, err = in.rk4(sys, x, t, dt)
	case EulerPC:
		next, err = in.eulerPC(sys, x, t, dt)
	case RKF45:
		return in.rkf45(sys, x, t, dt)
	default:
		return dynamo.Step{}, fmt.Errorf("unknown integrator: %d", int(in.method))
	}
	if err != nil {
		return dynamo.Step{}, err
	}
	return dynamo.Step{
		State:       next,
		T:           t + dt,
		Used:        dt,
		Next:        dt,
		Evaluations: in.method.Evaluations(),
	}, nil
}

// derive evaluates sys into dst.
func derive(sys dynamo.System, dst dynamo.State, x dynamo.State, t float64) error {
	dx, err := sys.Derive(x, t)
	if err != nil {
		return err
	}
	if len(dx) != len(dst) {
		return dynamo.ErrDimensionMismatch
	}
	copy(dst, dx)
	return nil
}
