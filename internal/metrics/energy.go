package metrics

import (
	"math"

	"github.com/san-kum/plantsim/internal/dynamo"
)

// EnergyDrift is the largest relative change of the plant's energy from its
// value at the first sample. It stays zero for plants without an energy
// function.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	dyn           dynamo.System
}

func NewEnergyDrift(dyn dynamo.System) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(s dynamo.Sample) {
	ec, ok := e.dyn.(dynamo.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(s.X)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
