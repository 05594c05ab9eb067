package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// Runge-Kutta-Fehlberg 4(5) tableau.
var (
	fc2 = 1.0 / 4.0
	fc3 = 3.0 / 8.0
	fc4 = 12.0 / 13.0
	fc6 = 1.0 / 2.0

	f21 = 1.0 / 4.0
	f31 = 3.0 / 32.0
	f32 = 9.0 / 32.0
	f41 = 1932.0 / 2197.0
	f42 = -7200.0 / 2197.0
	f43 = 7296.0 / 2197.0
	f51 = 439.0 / 216.0
	f52 = -8.0
	f53 = 3680.0 / 513.0
	f54 = -845.0 / 4104.0
	f61 = -8.0 / 27.0
	f62 = 2.0
	f63 = -3544.0 / 2565.0
	f64 = 1859.0 / 4104.0
	f65 = -11.0 / 40.0

	// 4th order weights
	w41 = 25.0 / 216.0
	w43 = 1408.0 / 2565.0
	w44 = 2197.0 / 4104.0
	w45 = -1.0 / 5.0

	// 5th order weights
	w51 = 16.0 / 135.0
	w53 = 6656.0 / 12825.0
	w54 = 28561.0 / 56430.0
	w55 = -9.0 / 50.0
	w56 = 2.0 / 55.0
)

// rkf45 retries at the same t with a smaller step until the local error,
// max |y5 - y4|, is within tolerance. The accepted step advances with the
// 5th order solution.
func (in *Integrator) rkf45(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.Step, error) {
	tol := in.opts.Tolerance
	if tol <= 0 {
		return dynamo.Step{}, fmt.Errorf("tolerance must be positive for adaptive stepping")
	}

	h := dt
	if in.opts.MaxDt > 0 && h > in.opts.MaxDt {
		h = in.opts.MaxDt
	}

	rejected, evals := 0, 0
	for {
		y5, errMax, err := in.fehlberg(sys, x, t, h)
		evals += 6
		if err != nil {
			return dynamo.Step{}, err
		}

		if errMax <= tol {
			next := h * in.grow
			if errMax > 0 {
				next = h * math.Min(in.grow, in.safety*math.Pow(tol/errMax, 0.2))
			}
			if in.opts.MaxDt > 0 && next > in.opts.MaxDt {
				next = in.opts.MaxDt
			}
			return dynamo.Step{
				State:       y5,
				T:           t + h,
				Used:        h,
				Next:        next,
				Rejected:    rejected,
				Evaluations: evals,
			}, nil
		}

		rejected++
		if rejected > in.opts.MaxRetries {
			return dynamo.Step{}, fmt.Errorf("%w: %d retries at t=%g, error %g above tolerance %g",
				dynamo.ErrNonConvergence, rejected-1, t, errMax, tol)
		}

		scale := in.shrink
		if !math.IsNaN(errMax) && !math.IsInf(errMax, 0) {
			scale = math.Max(in.shrink, in.safety*math.Pow(tol/errMax, 0.25))
		}
		h *= scale
		if h < in.opts.MinDt {
			return dynamo.Step{}, fmt.Errorf("%w: step %g below minimum %g at t=%g, error %g above tolerance %g",
				dynamo.ErrNonConvergence, h, in.opts.MinDt, t, errMax, tol)
		}
	}
}

// fehlberg evaluates the six stages for step h and returns the 5th order
// solution together with the infinity norm of its difference to the 4th
// order one. A non-finite difference is reported as +Inf.
func (in *Integrator) fehlberg(sys dynamo.System, x dynamo.State, t, h float64) (dynamo.State, float64, error) {
	n := len(x)
	k1, k2, k3, k4, k5, k6 := in.k[0], in.k[1], in.k[2], in.k[3], in.k[4], in.k[5]

	if err := derive(sys, k1, x, t); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + h*f21*k1[i]
	}
	if err := derive(sys, k2, in.stage, t+fc2*h); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + h*(f31*k1[i]+f32*k2[i])
	}
	if err := derive(sys, k3, in.stage, t+fc3*h); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + h*(f41*k1[i]+f42*k2[i]+f43*k3[i])
	}
	if err := derive(sys, k4, in.stage, t+fc4*h); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + h*(f51*k1[i]+f52*k2[i]+f53*k3[i]+f54*k4[i])
	}
	if err := derive(sys, k5, in.stage, t+h); err != nil {
		return nil, 0, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + h*(f61*k1[i]+f62*k2[i]+f63*k3[i]+f64*k4[i]+f65*k5[i])
	}
	if err := derive(sys, k6, in.stage, t+fc6*h); err != nil {
		return nil, 0, err
	}

	y5 := make(dynamo.State, n)
	errMax := 0.0
	for i := 0; i < n; i++ {
		y4 := x[i] + h*(w41*k1[i]+w43*k3[i]+w44*k4[i]+w45*k5[i])
		y5[i] = x[i] + h*(w51*k1[i]+w53*k3[i]+w54*k4[i]+w55*k5[i]+w56*k6[i])
		d := math.Abs(y5[i] - y4)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			d = math.Inf(1)
		}
		errMax = math.Max(errMax, d)
	}
	return y5, errMax, nil
}
