package config

import (
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
	"github.com/san-kum/plantsim/internal/params"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/signal"
)

const (
	DefaultPlant    = plants.CartPendulumName
	DefaultTs       = 0.01
	DefaultDuration = 10.0
	DefaultSeed     = 1
)

// Controller types.
const (
	ControllerNone     = "none"
	ControllerConstant = "constant"
	ControllerPID      = "pid"
	ControllerFeedback = "feedback"
)

// Reference types.
const (
	ReferenceConstant = "constant"
	ReferenceStep     = "step"
	ReferenceSquare   = "square"
	ReferenceSine     = "sine"
)

type Config struct {
	Plant        string             `yaml:"plant"`
	Scheme       integrators.Scheme `yaml:"scheme"`
	Ts           float64            `yaml:"ts"`
	Duration     float64            `yaml:"duration"`
	Alpha        *float64           `yaml:"alpha,omitempty"`
	Seed         uint64             `yaml:"seed"`
	Feedback     string             `yaml:"feedback,omitempty"`
	InitialState []float64          `yaml:"initial_state,omitempty"`
	Nominal      map[string]float64 `yaml:"nominal,omitempty"`
	Controller   ControllerConfig   `yaml:"controller"`
	Reference    ReferenceConfig    `yaml:"reference"`
}

type ControllerConfig struct {
	Type    string  `yaml:"type"`
	Kp      float64 `yaml:"kp,omitempty"`
	Ki      float64 `yaml:"ki,omitempty"`
	Kd      float64 `yaml:"kd,omitempty"`
	Channel int     `yaml:"channel,omitempty"`
	Limit   float64 `yaml:"limit,omitempty"`
	// Gains replaces the plant's preset state-feedback gains.
	Gains           [][]float64 `yaml:"gains,omitempty"`
	ReferenceStates []int       `yaml:"reference_states,omitempty"`
	Offset          []float64   `yaml:"offset,omitempty"`
	// Input is the fixed input of a constant controller.
	Input []float64 `yaml:"input,omitempty"`
}

type ReferenceConfig struct {
	Type      string  `yaml:"type"`
	Amplitude float64 `yaml:"amplitude,omitempty"`
	Frequency float64 `yaml:"frequency,omitempty"`
	Offset    float64 `yaml:"offset,omitempty"`
	Time      float64 `yaml:"time,omitempty"`
	Before    float64 `yaml:"before,omitempty"`
	After     float64 `yaml:"after,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Plant:      DefaultPlant,
		Scheme:     integrators.RK4,
		Ts:         DefaultTs,
		Duration:   DefaultDuration,
		Seed:       DefaultSeed,
		Controller: ControllerConfig{Type: ControllerNone},
		Reference:  ReferenceConfig{Type: ReferenceConstant},
	}
}

// Load decodes a yaml file over DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", dynamo.ErrInvalidConfiguration, path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Clone() *Config {
	out := *c
	if c.Alpha != nil {
		a := *c.Alpha
		out.Alpha = &a
	}
	out.InitialState = slices.Clone(c.InitialState)
	if c.Nominal != nil {
		out.Nominal = params.Nominal(c.Nominal).Clone()
	}
	if c.Controller.Gains != nil {
		out.Controller.Gains = make([][]float64, len(c.Controller.Gains))
		for i, row := range c.Controller.Gains {
			out.Controller.Gains[i] = slices.Clone(row)
		}
	}
	out.Controller.ReferenceStates = slices.Clone(c.Controller.ReferenceStates)
	out.Controller.Offset = slices.Clone(c.Controller.Offset)
	out.Controller.Input = slices.Clone(c.Controller.Input)
	return &out
}

// Validate reports the first problem found as dynamo.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	model, err := plants.Lookup(c.Plant)
	if err != nil {
		return err
	}
	if !c.Scheme.Valid() {
		return dynamo.Invalidf("unknown scheme %s", c.Scheme)
	}
	if !(c.Ts > 0) || math.IsInf(c.Ts, 0) {
		return dynamo.Invalidf("ts must be positive, got %g", c.Ts)
	}
	if !(c.Duration > 0) || math.IsInf(c.Duration, 0) {
		return dynamo.Invalidf("duration must be positive, got %g", c.Duration)
	}
	if c.Alpha != nil && !(*c.Alpha >= 0 && *c.Alpha < 1) {
		return dynamo.Invalidf("alpha must lie in [0, 1), got %g", *c.Alpha)
	}
	switch c.Feedback {
	case "", "measurement", "output", "state":
	default:
		return dynamo.Invalidf("unknown feedback %q", c.Feedback)
	}
	if c.Controller.Type == ControllerFeedback && c.FeedbackMode() != "state" {
		return dynamo.Invalidf("feedback controller needs the full state, got feedback %q", c.Feedback)
	}

	dim := len(model.StateLabels())
	if len(c.InitialState) != 0 && len(c.InitialState) != dim {
		return dynamo.Invalidf("%s expects %d initial state values, got %d", c.Plant, dim, len(c.InitialState))
	}
	nominal := model.Nominal()
	for name := range c.Nominal {
		if _, ok := nominal[name]; !ok {
			return dynamo.Invalidf("%s has no parameter %q", c.Plant, name)
		}
	}

	switch c.Controller.Type {
	case "", ControllerNone, ControllerConstant, ControllerPID, ControllerFeedback:
	default:
		return dynamo.Invalidf("unknown controller %q", c.Controller.Type)
	}
	switch c.Reference.Type {
	case "", ReferenceConstant, ReferenceStep, ReferenceSquare, ReferenceSine:
	default:
		return dynamo.Invalidf("unknown reference %q", c.Reference.Type)
	}
	return nil
}

// FeedbackMode is the signal the loop feeds back. A feedback controller
// defaults to the true state since its gains span every state channel.
func (c *Config) FeedbackMode() string {
	if c.Feedback == "" && c.Controller.Type == ControllerFeedback {
		return "state"
	}
	return c.Feedback
}

// GetInitState returns the configured initial state, or the zero state of
// the plant when none is set.
func (c *Config) GetInitState() []float64 {
	if len(c.InitialState) > 0 {
		return slices.Clone(c.InitialState)
	}
	model, err := plants.Lookup(c.Plant)
	if err != nil {
		return nil
	}
	return make([]float64, len(model.StateLabels()))
}

// Signal builds the reference generator.
func (c *Config) Signal() signal.Signal {
	r := c.Reference
	switch r.Type {
	case ReferenceStep:
		return signal.Step{Time: r.Time, Before: r.Before, After: r.After}
	case ReferenceSquare:
		return signal.Square{Amplitude: r.Amplitude, Frequency: r.Frequency, Offset: r.Offset}
	case ReferenceSine:
		return signal.Sine{Amplitude: r.Amplitude, Frequency: r.Frequency, Offset: r.Offset}
	default:
		return signal.Constant(r.Offset)
	}
}
