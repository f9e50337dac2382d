package metrics

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Stability is the share of samples whose state stays inside a box about
// the origin.
type Stability struct {
	bounds  []float64
	inside  int
	samples int
	escape  float64
}

// NewStability bounds state channel i by |x_i| <= bounds[i]. Channels past
// the last bound reuse it, so a single bound covers every channel:
// NewStability(10) counts a cart_pendulum as lost once the cart is 10 m out
// or the rod turns faster than 10 rad/s. Without bounds nothing is lost.
func NewStability(bounds ...float64) *Stability {
	return &Stability{bounds: bounds, escape: math.NaN()}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(sample dynamo.Sample) {
	s.samples++
	if s.contains(sample.X) {
		s.inside++
	} else if math.IsNaN(s.escape) {
		s.escape = sample.T
	}
}

func (s *Stability) contains(x dynamo.State) bool {
	if len(s.bounds) == 0 {
		return true
	}
	for i, v := range x {
		limit := s.bounds[min(i, len(s.bounds)-1)]
		// NaN fails the comparison and so counts as outside.
		if !(math.Abs(v) <= limit) {
			return false
		}
	}
	return true
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return float64(s.inside) / float64(s.samples)
}

// Escape returns the time of the first sample outside the box.
func (s *Stability) Escape() (float64, bool) {
	return s.escape, !math.IsNaN(s.escape)
}

func (s *Stability) Reset() {
	s.inside = 0
	s.samples = 0
	s.escape = math.NaN()
}
