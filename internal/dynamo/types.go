package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// AddScaled returns s + h*d.
func (s State) AddScaled(h float64, d State) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] + h*d[i]
	}
	return result
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

func (c Control) IsValid() bool {
	return State(c).IsValid()
}

// Output is a measurement vector: selected state channels plus sensor noise.
type Output []float64

func (o Output) Clone() Output {
	out := make(Output, len(o))
	copy(out, o)
	return out
}

// Reference is the value of the reference signal at one instant.
type Reference []float64

// Derivative evaluates the equations of motion at (x, u). Implementations
// are pure and return a fresh vector ordered like x.
type Derivative func(x State, u Control) (State, error)

// System is a plant's equations of motion bound to one parameter set.
type System interface {
	Derive(x State, u Control) (State, error)
	StateDim() int
	ControlDim() int
}

type Hamiltonian interface {
	Energy(x State) float64
}

// Controller computes the next input from the current reference and the
// feedback vector (a measurement or the true state, depending on the loop).
type Controller interface {
	Update(ref Reference, y Output) Control
}

// Configurable is implemented by controllers that expose tunable gains.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Sample is one recorded step of a closed loop: the time, the reference, the
// true state, the measurement fed back and the input applied over the
// following period.
type Sample struct {
	T   float64
	Ref Reference
	X   State
	Y   Output
	U   Control
}
