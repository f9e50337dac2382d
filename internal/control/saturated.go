package control

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// Saturated clamps every channel of Inner's output to [-Limit, Limit].
type Saturated struct {
	Inner dynamo.Controller
	Limit float64
}

func Saturate(inner dynamo.Controller, limit float64) *Saturated {
	return &Saturated{Inner: inner, Limit: limit}
}

func (s *Saturated) Update(ref dynamo.Reference, y dynamo.Output) dynamo.Control {
	u := s.Inner.Update(ref, y)
	if s.Limit <= 0 {
		return u
	}
	for i, v := range u {
		u[i] = math.Max(-s.Limit, math.Min(s.Limit, v))
	}
	return u
}
