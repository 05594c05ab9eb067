package integrators

import "github.com/san-kum/episim/internal/dynamo"

func (in *Integrator) heun(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if err := derive(sys, in.k[0], x, t); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + dt*in.k[0][i]
	}
	if err := derive(sys, in.k[1], in.stage, t+dt); err != nil {
		return nil, err
	}
	result := make(dynamo.State, n)
	halfDt := 0.5 * dt
	for i := 0; i < n; i++ {
		result[i] = x[i] + halfDt*(in.k[0][i]+in.k[1][i])
	}
	return result, nil
}
