package metrics

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// TrackingError is the RMS of ref[0] - x[channel].
type TrackingError struct {
	name    string
	channel int
	sumSq   float64
	samples int
}

func NewTrackingError(channel int) *TrackingError {
	return &TrackingError{
		name:    "tracking_error",
		channel: channel,
	}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(s dynamo.Sample) {
	if e.channel >= len(s.X) {
		return
	}
	r := 0.0
	if len(s.Ref) > 0 {
		r = s.Ref[0]
	}
	d := r - s.X[e.channel]
	e.sumSq += d * d
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.samples = 0
}
