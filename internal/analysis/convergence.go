package analysis

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
)

// ReferenceDivisions is how much finer the RK4 reference step is than the
// step under test.
const ReferenceDivisions = 64

// Trajectory integrates x0 open loop under a constant input for the given
// number of steps.
func Trajectory(sys dynamo.System, scheme integrators.Scheme, x0 dynamo.State, u dynamo.Control, ts float64, steps int) (dynamo.State, error) {
	x := x0.Clone()
	var err error
	for i := 0; i < steps; i++ {
		x, err = integrators.Integrate(scheme, x, u, sys.Derive, ts)
		if err != nil {
			return nil, err
		}
	}
	if !x.IsValid() {
		return x, dynamo.ErrNonFiniteState
	}
	return x, nil
}

// SchemeError is the distance at time duration between scheme stepped at ts
// and RK4 stepped at ts/ReferenceDivisions from the same start.
func SchemeError(sys dynamo.System, scheme integrators.Scheme, x0 dynamo.State, u dynamo.Control, ts, duration float64) (float64, error) {
	steps := int(math.Round(duration / ts))

	x, err := Trajectory(sys, scheme, x0, u, ts, steps)
	if err != nil {
		return 0, err
	}
	ref, err := Trajectory(sys, integrators.RK4, x0, u, ts/ReferenceDivisions, steps*ReferenceDivisions)
	if err != nil {
		return 0, err
	}

	return x.Sub(ref).Norm(), nil
}

// ObservedOrder estimates the convergence order of scheme as
// log2(e(ts)/e(ts/2)).
func ObservedOrder(sys dynamo.System, scheme integrators.Scheme, x0 dynamo.State, u dynamo.Control, ts, duration float64) (float64, error) {
	coarse, err := SchemeError(sys, scheme, x0, u, ts, duration)
	if err != nil {
		return 0, err
	}
	fine, err := SchemeError(sys, scheme, x0, u, ts/2, duration)
	if err != nil {
		return 0, err
	}
	if fine == 0 || coarse == 0 {
		return math.Inf(1), nil
	}
	return math.Log2(coarse / fine), nil
}
