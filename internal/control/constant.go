package control

import "github.com/san-kum/plantsim/internal/dynamo"

// Constant ignores its inputs and returns U every step.
type Constant struct {
	U dynamo.Control
}

// NewNone returns a zero input of dimension dim (open loop).
func NewNone(dim int) *Constant {
	return &Constant{U: make(dynamo.Control, dim)}
}

func NewConstant(u ...float64) *Constant {
	return &Constant{U: dynamo.Control(u).Clone()}
}

func (c *Constant) Update(dynamo.Reference, dynamo.Output) dynamo.Control {
	return c.U.Clone()
}
