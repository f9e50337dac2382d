package plants

import (
	"slices"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/measure"
	"github.com/san-kum/plantsim/internal/params"
)

// Model describes a plant: its nominal parameters, how to bind them into
// equations of motion, and what its sensors observe.
type Model interface {
	Name() string
	StateLabels() []string
	InputLabels() []string
	Nominal() params.Nominal
	// Exempt lists parameters that are never perturbed.
	Exempt() []string
	Bind(p params.Set) dynamo.System
	Sensor() measure.Sensor
}

var registry = map[string]Model{
	CartPendulumName: cartPendulumModel{},
	SatelliteName:    satelliteModel{},
	VTOLName:         vtolModel{},
}

// Lookup returns the model registered under name.
func Lookup(name string) (Model, error) {
	m, ok := registry[name]
	if !ok {
		return nil, dynamo.Invalidf("unknown plant %q (available: %v)", name, Names())
	}
	return m, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func inputOrZero(u dynamo.Control, i int) float64 {
	if i < len(u) {
		return u[i]
	}
	return 0
}

func checkDims(sys dynamo.System, x dynamo.State, u dynamo.Control) error {
	if len(x) != sys.StateDim() || len(u) > sys.ControlDim() {
		return dynamo.ErrDimensionMismatch
	}
	return nil
}
