// Package plants provides the closed-form equations of motion of the
// simulated plants.
//
// Each plant is a [Model] whose Bind method returns a [dynamo.System]
// holding realized parameters:
//
//   - [CartPendulum]: thin rod hinged on a damped cart, θ = 0 upright
//   - [Satellite]: rigid body coupled to a solar panel by a spring and damper
//   - [VTOL]: planar two-rotor vertical take-off vehicle
//
// Second-order dynamics are written as M(q)·q̈ = C(q, q̇, u) and solved with
// [linalg.Solve], so a singular mass matrix surfaces as
// [dynamo.ErrSingularDynamics] instead of a silent NaN.
//
// All bound systems also implement [dynamo.Hamiltonian], which lets the
// energy-drift metric watch integration error on undamped runs:
//
//	sys := model.Bind(params.Exact(model.Nominal()))
//	if h, ok := sys.(dynamo.Hamiltonian); ok {
//	    energy := h.Energy(state)
//	}
package plants
