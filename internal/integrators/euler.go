package integrators

import "github.com/san-kum/episim/internal/dynamo"

func (in *Integrator) euler(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if err := derive(sys, in.k[0], x, t); err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*in.k[0][i]
	}
	return result, nil
}

// eulerPC is the legacy Euler predictor-corrector: an Euler predictor p, an
// Euler step from x using the slope at p, and the average of both states.
// It agrees with Heun up to rounding but is kept as its own method.
func (in *Integrator) eulerPC(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if err := derive(sys, in.k[0], x, t); err != nil {
		return nil, err
	}
	predicted := in.stage
	for i := 0; i < n; i++ {
		predicted[i] = x[i] + dt*in.k[0][i]
	}
	if err := derive(sys, in.k[1], predicted, t+dt); err != nil {
		return nil, err
	}
	result := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		corrected := x[i] + dt*in.k[1][i]
		result[i] = 0.5 * (predicted[i] + corrected)
	}
	return result, nil
}
