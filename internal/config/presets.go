package config

import (
	"slices"

	"github.com/san-kum/plantsim/internal/integrators"
	"github.com/san-kum/plantsim/internal/plants"
)

func exact() *float64 {
	a := 0.0
	return &a
}

var Presets = map[string]map[string]*Config{
	plants.CartPendulumName: {
		"rest": {
			Plant: plants.CartPendulumName, Scheme: integrators.RK4, Ts: 0.01, Duration: 1.0, Alpha: exact(),
			InitialState: []float64{0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerNone},
			Reference:    ReferenceConfig{Type: ReferenceConstant},
		},
		"balance": {
			Plant: plants.CartPendulumName, Scheme: integrators.RK4, Ts: 0.01, Duration: 10.0, Feedback: "state",
			InitialState: []float64{0, 0.1, 0, 0},
			Controller:   ControllerConfig{Type: ControllerFeedback},
			Reference:    ReferenceConfig{Type: ReferenceConstant},
		},
		"track": {
			Plant: plants.CartPendulumName, Scheme: integrators.RK4, Ts: 0.01, Duration: 40.0, Feedback: "state",
			InitialState: []float64{0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerFeedback},
			Reference:    ReferenceConfig{Type: ReferenceSquare, Amplitude: 0.5, Frequency: 0.05},
		},
		"freefall": {
			Plant: plants.CartPendulumName, Scheme: integrators.RK4, Ts: 0.01, Duration: 3.0,
			InitialState: []float64{0, 0.1, 0, 0},
			Controller:   ControllerConfig{Type: ControllerNone},
			Reference:    ReferenceConfig{Type: ReferenceConstant},
		},
	},
	plants.SatelliteName: {
		"point": {
			Plant: plants.SatelliteName, Scheme: integrators.RK4, Ts: 0.01, Duration: 40.0, Feedback: "state",
			InitialState: []float64{0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerFeedback},
			Reference:    ReferenceConfig{Type: ReferenceStep, Time: 1, After: 1},
		},
		"pid": {
			Plant: plants.SatelliteName, Scheme: integrators.RK4, Ts: 0.01, Duration: 40.0,
			InitialState: []float64{0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerPID, Kp: 2, Kd: 8, Channel: 0, Limit: 5},
			Reference:    ReferenceConfig{Type: ReferenceStep, Time: 1, After: 1},
		},
		"wobble": {
			Plant: plants.SatelliteName, Scheme: integrators.RK4, Ts: 0.01, Duration: 60.0,
			InitialState: []float64{0.5, -0.5, 0, 0},
			Controller:   ControllerConfig{Type: ControllerNone},
			Reference:    ReferenceConfig{Type: ReferenceConstant},
		},
	},
	plants.VTOLName: {
		"hover": {
			Plant: plants.VTOLName, Scheme: integrators.RK4, Ts: 0.01, Duration: 15.0, Feedback: "state",
			InitialState: []float64{0.5, 0, 0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerFeedback},
			Reference:    ReferenceConfig{Type: ReferenceConstant, Offset: 1},
		},
		"climb": {
			Plant: plants.VTOLName, Scheme: integrators.RK4, Ts: 0.01, Duration: 40.0, Feedback: "state",
			InitialState: []float64{0, 0, 0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerFeedback},
			Reference:    ReferenceConfig{Type: ReferenceSquare, Amplitude: 1, Frequency: 0.05, Offset: 2},
		},
		"drop": {
			Plant: plants.VTOLName, Scheme: integrators.RK4, Ts: 0.01, Duration: 1.0,
			InitialState: []float64{0, 10, 0, 0, 0, 0},
			Controller:   ControllerConfig{Type: ControllerNone},
			Reference:    ReferenceConfig{Type: ReferenceConstant},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	cfg, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	out := cfg.Clone()
	if out.Seed == 0 {
		out.Seed = DefaultSeed
	}
	return out
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
