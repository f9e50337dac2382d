package metrics

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// ControlEffort averages the L1 norm of the applied input, Σ|u_i|, over the
// samples. The vtol inputs are absolute rotor forces, so a hovering vtol
// reads its hover thrust rather than zero.
type ControlEffort struct {
	total   float64
	peak    float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(s dynamo.Sample) {
	norm := 0.0
	for _, u := range s.U {
		norm += math.Abs(u)
	}
	c.total += norm
	c.peak = math.Max(c.peak, norm)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.total / float64(c.samples)
}

// Peak is the largest single-sample Σ|u_i| seen.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() {
	*c = ControlEffort{}
}
