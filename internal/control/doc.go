// Package control provides feedback controllers for the simulated plants.
//
// Controllers implement [dynamo.Controller] and compute the next input from
// the reference and a feedback vector:
//
//   - [PID]: single-channel PID with output saturation and anti-windup
//   - [StateFeedback]: u = u0 - K(x - x_r), requires full-state feedback
//   - [Constant]: fixed input, zero by default (open loop)
//   - [Saturated]: clamps the output of another controller
//
// # Usage
//
//	pid := control.NewPID(20, 1, 5, 0.01)
//	pid.Channel = 0
//	u := pid.Update(dynamo.Reference{1}, y)
//
// Controllers implementing [dynamo.Configurable] can be tuned by name,
// which is how the grid search in internal/optim drives them.
package control
