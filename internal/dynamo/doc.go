// Package dynamo provides the core primitives shared by plants, integrators
// and the simulation loop.
//
// The package defines the vectors exchanged between components and the
// error taxonomy every component reports through:
//
//   - [State]: continuous plant state, positions followed by velocities
//   - [Control]: input vector applied for one sample period
//   - [Output]: noisy measurement produced by a sensor
//   - [Reference]: value produced by a reference signal
//   - [Derivative]: equations of motion bound to realized parameters
//   - [Controller]: feedback law driven by the simulation loop
//
// # Errors
//
// Fatal numerical failures are reported as [ErrSingularDynamics] or
// [ErrNonFiniteState]; construction failures as [ErrInvalidConfiguration].
// Components wrap them in [SimulationError] so callers can tell which plant,
// component and step failed while errors.Is still matches the sentinel.
//
// # Thread Safety
//
// Nothing in this package holds shared state. Vectors are plain slices and
// belong to whoever created them.
package dynamo
