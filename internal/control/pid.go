package control

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// PID tracks ref[0] with feedback channel Channel. The integral uses the
// trapezoid rule and the derivative a backward difference over Ts. When
// Limit is positive the output is clamped to ±Limit and the integral is
// frozen while clamped.
type PID struct {
	Kp      float64
	Ki      float64
	Kd      float64
	Channel int
	Ts      float64
	Limit   float64

	integral float64
	prevErr  float64
	first    bool
}

func NewPID(kp, ki, kd, ts float64) *PID {
	return &PID{
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		Ts:    ts,
		first: true,
	}
}

func (p *PID) Update(ref dynamo.Reference, y dynamo.Output) dynamo.Control {
	if p.Channel >= len(y) {
		return dynamo.Control{0}
	}

	target := 0.0
	if len(ref) > 0 {
		target = ref[0]
	}
	err := target - y[p.Channel]

	if p.first {
		p.prevErr = err
		p.first = false
	}

	prevIntegral := p.integral
	derivative := 0.0
	if p.Ts > 0 {
		p.integral += p.Ts / 2 * (err + p.prevErr)
		derivative = (err - p.prevErr) / p.Ts
	}
	p.prevErr = err

	u := p.Kp*err + p.Ki*p.integral + p.Kd*derivative

	if p.Limit > 0 && math.Abs(u) > p.Limit {
		u = math.Copysign(p.Limit, u)
		p.integral = prevIntegral
	}

	return dynamo.Control{u}
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// Integral exposes the accumulated error integral.
func (p *PID) Integral() float64 { return p.integral }

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":    p.Kp,
		"Ki":    p.Ki,
		"Kd":    p.Kd,
		"Limit": p.Limit,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Limit":
		p.Limit = value
	default:
		return dynamo.Invalidf("pid has no parameter %q", name)
	}
	return nil
}
