package plants

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/linalg"
	"github.com/san-kum/plantsim/internal/measure"
	"github.com/san-kum/plantsim/internal/params"
)

const VTOLName = "vtol"

// VTOL is a planar vehicle: a center pod (mass Mc, inertia Jc) carrying two
// rotors of mass Mr at distance D. State is [z, h, θ, ż, ḣ, θ̇], input
// [fr, fl] (right and left thrust).
type VTOL struct {
	Mc, Mr  float64
	Jc      float64
	D       float64
	Mu      float64
	Gravity float64
}

func NewVTOL() *VTOL {
	return &VTOL{Mc: 1.0, Mr: 0.25, Jc: 0.0042, D: 0.3, Mu: 0.1, Gravity: 9.81}
}

func (v *VTOL) StateDim() int   { return 6 }
func (v *VTOL) ControlDim() int { return 2 }

func (v *VTOL) mass() float64    { return v.Mc + 2*v.Mr }
func (v *VTOL) inertia() float64 { return v.Jc + 2*v.Mr*v.D*v.D }

func (v *VTOL) Derive(x dynamo.State, u dynamo.Control) (dynamo.State, error) {
	if err := checkDims(v, x, u); err != nil {
		return nil, err
	}
	theta, zdot, hdot, thetadot := x[2], x[3], x[4], x[5]
	fr, fl := inputOrZero(u, 0), inputOrZero(u, 1)

	sin, cos := math.Sincos(theta)
	total := fr + fl
	m := v.mass()

	M := mat.NewDense(3, 3, []float64{
		m, 0, 0,
		0, m, 0,
		0, 0, v.inertia(),
	})
	C := []float64{
		-total*sin - v.Mu*zdot,
		-m*v.Gravity + total*cos,
		v.D * (fr - fl),
	}

	acc, err := linalg.Solve(M, C)
	if err != nil {
		return nil, err
	}

	return dynamo.State{zdot, hdot, thetadot, acc[0], acc[1], acc[2]}, nil
}

// HoverThrust is the per-rotor thrust that balances gravity at θ = 0.
func (v *VTOL) HoverThrust() float64 {
	return v.mass() * v.Gravity / 2.0
}

func (v *VTOL) Energy(x dynamo.State) float64 {
	h, zdot, hdot, thetadot := x[1], x[3], x[4], x[5]
	ke := 0.5 * v.mass() * (zdot*zdot + hdot*hdot)
	keRot := 0.5 * v.inertia() * thetadot * thetadot
	pe := v.mass() * v.Gravity * h
	return ke + keRot + pe
}

type vtolModel struct{}

func (vtolModel) Name() string { return VTOLName }

func (vtolModel) StateLabels() []string {
	return []string{"z", "h", "theta", "zdot", "hdot", "thetadot"}
}

func (vtolModel) InputLabels() []string { return []string{"fr", "fl"} }

func (vtolModel) Nominal() params.Nominal {
	n := NewVTOL()
	return params.Nominal{"mc": n.Mc, "mr": n.Mr, "Jc": n.Jc, "d": n.D, "mu": n.Mu, "g": n.Gravity}
}

func (vtolModel) Exempt() []string { return []string{"g"} }

func (vtolModel) Bind(p params.Set) dynamo.System {
	return &VTOL{
		Mc:      p.Get("mc"),
		Mr:      p.Get("mr"),
		Jc:      p.Get("Jc"),
		D:       p.Get("d"),
		Mu:      p.Get("mu"),
		Gravity: p.Get("g"),
	}
}

func (vtolModel) Sensor() measure.Sensor {
	return measure.Sensor{
		Labels:   []string{"z", "h", "theta"},
		Channels: []int{0, 1, 2},
		StdDev:   []float64{0.01, 0.01, 0.001},
	}
}
