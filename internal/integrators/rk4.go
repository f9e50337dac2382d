package integrators

import "github.com/san-kum/plantsim/internal/dynamo"

func stepRK4(x dynamo.State, u dynamo.Control, f dynamo.Derivative, ts float64) (dynamo.State, error) {
	n := len(x)
	scratch := make(dynamo.State, n)

	k1, err := f(x, u)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + ts*0.5*k1[i]
	}
	k2, err := f(scratch, u)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + ts*0.5*k2[i]
	}
	k3, err := f(scratch, u)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		scratch[i] = x[i] + ts*k3[i]
	}
	k4, err := f(scratch, u)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, n)
	dt6 := ts / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}

	return result, nil
}
