package integrators

import "github.com/san-kum/episim/internal/dynamo"

func (in *Integrator) rk4(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	k1, k2, k3, k4 := in.k[0], in.k[1], in.k[2], in.k[3]

	if err := derive(sys, k1, x, t); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + dt*0.5*k1[i]
	}
	if err := derive(sys, k2, in.stage, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + dt*0.5*k2[i]
	}
	if err := derive(sys, k3, in.stage, t+dt*0.5); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		in.stage[i] = x[i] + dt*k3[i]
	}
	if err := derive(sys, k4, in.stage, t+dt); err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return result, nil
}
