// Package plant owns one simulated plant: its realized parameters, its true
// state, the integration scheme and the sensor that observes it.
//
// A Simulator is exclusively owned by one caller and is not safe for
// concurrent use. Independent simulators may run in parallel as long as
// each has its own random source, or they share a [random.Source].
package plant

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-logr/logr"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
	"github.com/san-kum/plantsim/internal/measure"
	"github.com/san-kum/plantsim/internal/params"
	"github.com/san-kum/plantsim/internal/plants"
)

// Config fixes the sample period, the uncertainty and the scheme for the
// lifetime of a Simulator.
type Config struct {
	Ts float64
	// Alpha is the uncertainty fraction; nil means params.DefaultAlpha.
	Alpha *float64
	// Scheme defaults to RK4 when left zero.
	Scheme integrators.Scheme
	// Nominal overrides individual nominal parameters of the model.
	Nominal params.Nominal
}

func DefaultConfig() Config {
	return Config{Ts: 0.01, Scheme: integrators.RK4}
}

// Alpha is a convenience for filling Config.Alpha.
func Alpha(a float64) *float64 { return &a }

type Option func(*Simulator)

func WithLogger(log logr.Logger) Option {
	return func(s *Simulator) { s.log = log }
}

type Simulator struct {
	model  plants.Model
	sys    dynamo.System
	params params.Set
	sensor measure.Sensor
	scheme integrators.Scheme
	ts     float64
	src    rand.Source

	x     dynamo.State
	steps int
	err   error

	log logr.Logger
}

// New draws the plant's parameters once from src and stores a copy of x0 as
// the current state. All configuration problems are reported here, before
// any stepping, as dynamo.ErrInvalidConfiguration.
func New(model plants.Model, cfg Config, x0 dynamo.State, src rand.Source, opts ...Option) (*Simulator, error) {
	if model == nil {
		return nil, dynamo.Invalidf("no plant model")
	}
	if src == nil {
		return nil, dynamo.Invalidf("no random source")
	}
	if cfg.Ts <= 0 || math.IsNaN(cfg.Ts) || math.IsInf(cfg.Ts, 0) {
		return nil, dynamo.Invalidf("ts must be positive, got %g", cfg.Ts)
	}

	alpha := params.DefaultAlpha
	if cfg.Alpha != nil {
		alpha = *cfg.Alpha
	}
	if !(alpha >= 0 && alpha < 1) {
		return nil, dynamo.Invalidf("alpha must lie in [0, 1), got %g", alpha)
	}

	scheme := cfg.Scheme
	if scheme == 0 {
		scheme = integrators.RK4
	}
	if !scheme.Valid() {
		return nil, dynamo.Invalidf("unknown integration scheme %s", scheme)
	}

	nominal := model.Nominal()
	for name, v := range cfg.Nominal {
		if _, ok := nominal[name]; !ok {
			return nil, dynamo.Invalidf("%s has no parameter %q (have %v)", model.Name(), name, nominal.Names())
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, dynamo.Invalidf("parameter %s is not finite", name)
		}
		nominal[name] = v
	}

	set := params.Randomize(nominal, alpha, model.Exempt(), src)
	sys := model.Bind(set)

	if len(x0) != sys.StateDim() {
		return nil, dynamo.Invalidf("%s expects a %d-dimensional initial state, got %d",
			model.Name(), sys.StateDim(), len(x0))
	}
	if !x0.IsValid() {
		return nil, dynamo.Invalidf("initial state %v is not finite", x0)
	}

	sensor := model.Sensor()
	if err := sensor.Validate(sys.StateDim()); err != nil {
		return nil, err
	}

	s := &Simulator{
		model:  model,
		sys:    sys,
		params: set,
		sensor: sensor,
		scheme: scheme,
		ts:     cfg.Ts,
		src:    src,
		x:      x0.Clone(),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.V(1).Info("plant constructed",
		"plant", model.Name(), "scheme", scheme, "ts", cfg.Ts, "alpha", alpha, "params", set.Values())

	return s, nil
}

// Update advances the state by exactly one Ts and returns the measurement
// of the new state. The step is committed only if it succeeds; after a
// fatal failure every further call returns the same error.
func (s *Simulator) Update(u dynamo.Control) (dynamo.Output, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(u) != s.sys.ControlDim() {
		return nil, s.fail(dynamo.ComponentController,
			fmt.Errorf("%w: got %d inputs, %s takes %d", dynamo.ErrDimensionMismatch, len(u), s.model.Name(), s.sys.ControlDim()),
			false)
	}

	next, err := Step(s.scheme, s.sys, s.x, u, s.ts)
	if err != nil {
		component := dynamo.ComponentDynamics
		if next != nil {
			component = dynamo.ComponentIntegrator
		}
		return nil, s.fail(component, err, true)
	}

	s.x = next
	s.steps++

	return measure.Measure(s.sensor, s.x, s.src), nil
}

func (s *Simulator) fail(component string, err error, fatal bool) error {
	simErr := &dynamo.SimulationError{
		Plant:     s.model.Name(),
		Component: component,
		Step:      s.steps,
		Time:      s.Time(),
		State:     s.x.Clone(),
		Wrapped:   err,
	}
	if fatal {
		s.err = simErr
		s.log.Error(err, "plant halted", "plant", simErr.Plant, "component", component, "step", s.steps, "t", simErr.Time)
	}
	return simErr
}

// Step integrates x over one period under scheme and rejects non-finite
// results. On a non-finite result the offending state is returned alongside
// the error; on a derivative failure the state is nil.
func Step(scheme integrators.Scheme, sys dynamo.System, x dynamo.State, u dynamo.Control, ts float64) (dynamo.State, error) {
	next, err := integrators.Integrate(scheme, x, u, sys.Derive, ts)
	if err != nil {
		return nil, err
	}
	if !next.IsValid() {
		return next, fmt.Errorf("%w: %v", dynamo.ErrNonFiniteState, next)
	}
	return next, nil
}

// Measure returns a fresh noisy measurement of the current state without
// stepping.
func (s *Simulator) Measure() dynamo.Output {
	return measure.Measure(s.sensor, s.x, s.src)
}

// State returns a copy of the true state.
func (s *Simulator) State() dynamo.State { return s.x.Clone() }

func (s *Simulator) Params() params.Set { return s.params }

// Err reports the error that halted the plant, if any.
func (s *Simulator) Err() error { return s.err }

func (s *Simulator) Time() float64 { return float64(s.steps) * s.ts }

func (s *Simulator) Steps() int { return s.steps }

func (s *Simulator) Ts() float64 { return s.ts }

func (s *Simulator) Scheme() integrators.Scheme { return s.scheme }

func (s *Simulator) Model() plants.Model { return s.model }

func (s *Simulator) Sensor() measure.Sensor { return s.sensor }

// Dynamics returns the equations of motion bound to the realized parameters.
func (s *Simulator) Dynamics() dynamo.System { return s.sys }

func (s *Simulator) InputDim() int { return s.sys.ControlDim() }
