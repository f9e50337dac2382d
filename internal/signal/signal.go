// Package signal generates reference values as functions of simulated time.
package signal

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Signal is a scalar reference r(t).
type Signal interface {
	At(t float64) float64
}

// Func adapts an ordinary function to Signal.
type Func func(t float64) float64

func (f Func) At(t float64) float64 { return f(t) }

type Constant float64

func (c Constant) At(float64) float64 { return float64(c) }

// Step switches from Before to After at Time.
type Step struct {
	Time   float64
	Before float64
	After  float64
}

func (s Step) At(t float64) float64 {
	if t < s.Time {
		return s.Before
	}
	return s.After
}

// Square alternates between Offset+Amplitude and Offset-Amplitude, starting
// high, with the given frequency in Hz.
type Square struct {
	Amplitude float64
	Frequency float64
	Offset    float64
}

func (s Square) At(t float64) float64 {
	if s.Frequency <= 0 {
		return s.Offset + s.Amplitude
	}
	phase := math.Mod(t*s.Frequency, 1)
	if phase < 0 {
		phase++
	}
	if phase < 0.5 {
		return s.Offset + s.Amplitude
	}
	return s.Offset - s.Amplitude
}

type Sine struct {
	Amplitude float64
	Frequency float64
	Offset    float64
}

func (s Sine) At(t float64) float64 {
	return s.Offset + s.Amplitude*math.Sin(2*math.Pi*s.Frequency*t)
}

// Reference evaluates sig at t as a one-element reference vector.
func Reference(sig Signal, t float64) dynamo.Reference {
	if sig == nil {
		return dynamo.Reference{0}
	}
	return dynamo.Reference{sig.At(t)}
}
