package plants

import (
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/linalg"
	"github.com/san-kum/plantsim/internal/measure"
	"github.com/san-kum/plantsim/internal/params"
)

const SatelliteName = "satellite"

// Satellite is a rigid body (inertia Js) driven by torque τ and coupled to a
// solar panel (inertia Jp) through a torsional spring K and damper B.
// State is [θ, φ, θ̇, φ̇], input [τ].
type Satellite struct {
	Js, Jp float64
	K      float64
	B      float64
}

func NewSatellite() *Satellite {
	return &Satellite{Js: 5.0, Jp: 1.0, K: 0.15, B: 0.05}
}

func (s *Satellite) StateDim() int   { return 4 }
func (s *Satellite) ControlDim() int { return 1 }

func (s *Satellite) Derive(x dynamo.State, u dynamo.Control) (dynamo.State, error) {
	if err := checkDims(s, x, u); err != nil {
		return nil, err
	}
	theta, phi, thetadot, phidot := x[0], x[1], x[2], x[3]
	tau := inputOrZero(u, 0)

	thetaddot, phiddot, err := linalg.Solve2(
		s.Js, 0,
		0, s.Jp,
		tau-s.B*(thetadot-phidot)-s.K*(theta-phi),
		-s.B*(phidot-thetadot)-s.K*(phi-theta),
	)
	if err != nil {
		return nil, err
	}

	return dynamo.State{thetadot, phidot, thetaddot, phiddot}, nil
}

func (s *Satellite) Energy(x dynamo.State) float64 {
	theta, phi, thetadot, phidot := x[0], x[1], x[2], x[3]
	twist := phi - theta
	return 0.5*s.Js*thetadot*thetadot + 0.5*s.Jp*phidot*phidot + 0.5*s.K*twist*twist
}

type satelliteModel struct{}

func (satelliteModel) Name() string { return SatelliteName }

func (satelliteModel) StateLabels() []string {
	return []string{"theta", "phi", "thetadot", "phidot"}
}

func (satelliteModel) InputLabels() []string { return []string{"tau"} }

func (satelliteModel) Nominal() params.Nominal {
	n := NewSatellite()
	return params.Nominal{"Js": n.Js, "Jp": n.Jp, "k": n.K, "b": n.B}
}

func (satelliteModel) Exempt() []string { return nil }

func (satelliteModel) Bind(p params.Set) dynamo.System {
	return &Satellite{Js: p.Get("Js"), Jp: p.Get("Jp"), K: p.Get("k"), B: p.Get("b")}
}

func (satelliteModel) Sensor() measure.Sensor {
	return measure.Sensor{
		Labels:   []string{"theta", "phi"},
		Channels: []int{0, 1},
		StdDev:   []float64{0.001, 0.001},
	}
}
