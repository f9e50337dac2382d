package control

import "github.com/san-kum/plantsim/internal/plants"

// Pole-placement gains for the linearized plants at their nominal
// parameters.
var (
	// poles -2, -2.5, -3, -3.5 about the upright rest state
	cartPendulumGains = [][]float64{{-1.897, -28.731, -2.932, -4.857}}
	// poles -0.5, -0.6, -0.7, -0.8
	satelliteGains = [][]float64{{9.967, -4.367, 12.7, 20.967}}
	// altitude poles -2, -2.5; lateral poles -1, -1.5, -8, -10
	vtolGains = [][]float64{
		{-1.00305, 3.75, 10.2613, -1.82773, 3.375, 1.67553},
		{1.00305, 3.75, -10.2613, 1.82773, 3.375, -1.67553},
	}
)

const vtolHoverThrust = 7.3575

// NewCartPendulumFeedback regulates the rod upright with the cart tracking
// the reference position.
func NewCartPendulumFeedback() *StateFeedback {
	return NewStateFeedback(cloneGains(cartPendulumGains), 0)
}

// NewSatelliteFeedback points both body and panel at the reference angle.
func NewSatelliteFeedback() *StateFeedback {
	return NewStateFeedback(cloneGains(satelliteGains), 0, 1)
}

// NewVTOLFeedback holds the vehicle at the reference altitude above z = 0.
func NewVTOLFeedback() *StateFeedback {
	f := NewStateFeedback(cloneGains(vtolGains), 1)
	f.Offset = []float64{vtolHoverThrust, vtolHoverThrust}
	return f
}

// FeedbackFor returns the preset state feedback for a plant, or nil.
func FeedbackFor(plant string) *StateFeedback {
	switch plant {
	case plants.CartPendulumName:
		return NewCartPendulumFeedback()
	case plants.SatelliteName:
		return NewSatelliteFeedback()
	case plants.VTOLName:
		return NewVTOLFeedback()
	}
	return nil
}

func cloneGains(k [][]float64) [][]float64 {
	out := make([][]float64, len(k))
	for i, row := range k {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
