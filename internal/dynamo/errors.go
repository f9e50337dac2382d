package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrSingularDynamics indicates the mass/inertia matrix could not be
	// solved against because it is singular or badly conditioned.
	ErrSingularDynamics = errors.New("dynamo: singular dynamics (mass matrix not solvable)")

	// ErrNonFiniteState indicates integration produced NaN or Inf.
	ErrNonFiniteState = errors.New("dynamo: non-finite state (NaN or Inf detected)")

	// ErrInvalidConfiguration indicates missing or malformed construction input.
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between vector and plant")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// Component names used in SimulationError.
const (
	ComponentConfig      = "config"
	ComponentDynamics    = "equations of motion"
	ComponentIntegrator  = "integrator"
	ComponentController  = "controller"
	ComponentMeasurement = "measurement"
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Plant     string
	Component string
	Step      int
	Time      float64
	State     State
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: %s failed at step %d (t=%.4f): %v",
		e.Plant, e.Component, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Invalidf builds an ErrInvalidConfiguration with a formatted reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
