// Package measure maps true plant state to noisy sensor outputs.
package measure

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Sensor selects state channels and perturbs each with independent
// zero-mean Gaussian noise of fixed standard deviation.
type Sensor struct {
	Labels   []string
	Channels []int
	StdDev   []float64
}

// Validate checks the sensor against a plant's state dimension.
func (s Sensor) Validate(stateDim int) error {
	if len(s.Channels) == 0 {
		return dynamo.Invalidf("sensor has no channels")
	}
	if len(s.StdDev) != len(s.Channels) {
		return dynamo.Invalidf("sensor has %d channels but %d deviations", len(s.Channels), len(s.StdDev))
	}
	for i, ch := range s.Channels {
		if ch < 0 || ch >= stateDim {
			return dynamo.Invalidf("sensor channel %d outside state of dimension %d", ch, stateDim)
		}
		if s.StdDev[i] < 0 {
			return dynamo.Invalidf("sensor channel %d has negative deviation %g", ch, s.StdDev[i])
		}
	}
	return nil
}

func (s Sensor) Dim() int { return len(s.Channels) }

// Label returns the name of output channel i.
func (s Sensor) Label(i int) string {
	if i < len(s.Labels) {
		return s.Labels[i]
	}
	return fmt.Sprintf("y%d", i)
}

// Measure returns h(x): the selected channels of x plus fresh noise. Each
// call draws new noise from src; nothing is remembered between calls.
func Measure(s Sensor, x dynamo.State, src rand.Source) dynamo.Output {
	y := make(dynamo.Output, len(s.Channels))
	for i, ch := range s.Channels {
		y[i] = x[ch]
		if sd := s.StdDev[i]; sd > 0 {
			y[i] += distuv.Normal{Mu: 0, Sigma: sd, Src: src}.Rand()
		}
	}
	return y
}

// Exact returns the selected channels without noise.
func Exact(s Sensor, x dynamo.State) dynamo.Output {
	y := make(dynamo.Output, len(s.Channels))
	for i, ch := range s.Channels {
		y[i] = x[ch]
	}
	return y
}
