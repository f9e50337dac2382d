package integrators

import "github.com/san-kum/plantsim/internal/dynamo"

// stepRK1 is explicit Euler: x + ts*f(x, u).
func stepRK1(x dynamo.State, u dynamo.Control, f dynamo.Derivative, ts float64) (dynamo.State, error) {
	dx, err := f(x, u)
	if err != nil {
		return nil, err
	}
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + ts*dx[i]
	}
	return result, nil
}
