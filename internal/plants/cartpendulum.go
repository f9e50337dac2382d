package plants

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/linalg"
	"github.com/san-kum/plantsim/internal/measure"
	"github.com/san-kum/plantsim/internal/params"
)

const CartPendulumName = "cart_pendulum"

// CartPendulum is a uniform rod of mass M1 and length Ell hinged on a cart of
// mass M2 sliding with viscous friction B. State is [z, θ, ż, θ̇], input [F].
type CartPendulum struct {
	M1, M2  float64
	Ell     float64
	B       float64
	Gravity float64
}

func NewCartPendulum() *CartPendulum {
	return &CartPendulum{M1: 0.25, M2: 1.0, Ell: 0.5, B: 0.05, Gravity: 9.8}
}

func (c *CartPendulum) StateDim() int   { return 4 }
func (c *CartPendulum) ControlDim() int { return 1 }

func (c *CartPendulum) Derive(x dynamo.State, u dynamo.Control) (dynamo.State, error) {
	if err := checkDims(c, x, u); err != nil {
		return nil, err
	}
	theta, zdot, thetadot := x[1], x[2], x[3]
	force := inputOrZero(u, 0)

	sint, cost := math.Sincos(theta)
	half := c.M1 * c.Ell / 2

	zddot, thetaddot, err := linalg.Solve2(
		c.M1+c.M2, half*cost,
		half*cost, c.M1*c.Ell*c.Ell/3,
		half*thetadot*thetadot*sint+force-c.B*zdot,
		half*c.Gravity*sint,
	)
	if err != nil {
		return nil, err
	}

	return dynamo.State{zdot, thetadot, zddot, thetaddot}, nil
}

func (c *CartPendulum) Energy(x dynamo.State) float64 {
	theta, zdot, thetadot := x[1], x[2], x[3]
	ke := 0.5*(c.M1+c.M2)*zdot*zdot +
		0.5*c.M1*c.Ell*math.Cos(theta)*zdot*thetadot +
		0.5*c.M1*c.Ell*c.Ell/3*thetadot*thetadot
	pe := c.M1 * c.Gravity * c.Ell / 2 * math.Cos(theta)
	return ke + pe
}

type cartPendulumModel struct{}

func (cartPendulumModel) Name() string { return CartPendulumName }

func (cartPendulumModel) StateLabels() []string {
	return []string{"z", "theta", "zdot", "thetadot"}
}

func (cartPendulumModel) InputLabels() []string { return []string{"F"} }

func (cartPendulumModel) Nominal() params.Nominal {
	n := NewCartPendulum()
	return params.Nominal{"m1": n.M1, "m2": n.M2, "ell": n.Ell, "b": n.B, "g": n.Gravity}
}

func (cartPendulumModel) Exempt() []string { return []string{"g"} }

func (cartPendulumModel) Bind(p params.Set) dynamo.System {
	return &CartPendulum{
		M1:      p.Get("m1"),
		M2:      p.Get("m2"),
		Ell:     p.Get("ell"),
		B:       p.Get("b"),
		Gravity: p.Get("g"),
	}
}

func (cartPendulumModel) Sensor() measure.Sensor {
	return measure.Sensor{
		Labels:   []string{"z", "theta"},
		Channels: []int{0, 1},
		StdDev:   []float64{0.01, 0.001},
	}
}
