package integrators

import "github.com/san-kum/plantsim/internal/dynamo"

// stepRK2 evaluates f at x and at the half-step point x + ts/2*F1, then
// combines them as x + ts/6*(F1+F2). The weighting is kept as-is; it is not
// the textbook midpoint update x + ts*F2.
func stepRK2(x dynamo.State, u dynamo.Control, f dynamo.Derivative, ts float64) (dynamo.State, error) {
	k1, err := f(x, u)
	if err != nil {
		return nil, err
	}

	k2, err := f(x.AddScaled(ts/2, k1), u)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.State, len(x))
	dt6 := ts / 6.0
	for i := range x {
		result[i] = x[i] + dt6*(k1[i]+k2[i])
	}
	return result, nil
}
