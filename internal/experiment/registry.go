package experiment

import (
	"slices"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/control"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/metrics"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/sim"
)

// ControllerFactory builds a controller for a plant from its configuration.
type ControllerFactory func(cfg config.ControllerConfig, model plants.Model, ts float64) (dynamo.Controller, error)

type Registry struct {
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		controllers: make(map[string]ControllerFactory),
	}

	r.controllers[config.ControllerNone] = func(_ config.ControllerConfig, m plants.Model, _ float64) (dynamo.Controller, error) {
		return control.NewNone(len(m.InputLabels())), nil
	}
	r.controllers[config.ControllerConstant] = func(c config.ControllerConfig, m plants.Model, _ float64) (dynamo.Controller, error) {
		if len(c.Input) != len(m.InputLabels()) {
			return nil, dynamo.Invalidf("%s takes %d inputs, constant controller has %d", m.Name(), len(m.InputLabels()), len(c.Input))
		}
		return control.NewConstant(c.Input...), nil
	}
	r.controllers[config.ControllerPID] = func(c config.ControllerConfig, m plants.Model, ts float64) (dynamo.Controller, error) {
		if len(m.InputLabels()) != 1 {
			return nil, dynamo.Invalidf("pid drives a single input, %s has %d", m.Name(), len(m.InputLabels()))
		}
		if c.Channel < 0 || c.Channel >= m.Sensor().Dim() {
			return nil, dynamo.Invalidf("pid channel %d outside %s measurement", c.Channel, m.Name())
		}
		pid := control.NewPID(c.Kp, c.Ki, c.Kd, ts)
		pid.Channel = c.Channel
		pid.Limit = c.Limit
		return pid, nil
	}
	r.controllers[config.ControllerFeedback] = func(c config.ControllerConfig, m plants.Model, _ float64) (dynamo.Controller, error) {
		f := control.FeedbackFor(m.Name())
		if f == nil {
			f = &control.StateFeedback{}
		}
		if c.Gains != nil {
			f.K = make([][]float64, len(c.Gains))
			for i, row := range c.Gains {
				f.K[i] = slices.Clone(row)
			}
		}
		if c.ReferenceStates != nil {
			f.RefStates = slices.Clone(c.ReferenceStates)
		}
		if c.Offset != nil {
			f.Offset = slices.Clone(c.Offset)
		}
		if len(f.K) != len(m.InputLabels()) {
			return nil, dynamo.Invalidf("%s takes %d inputs, gain matrix has %d rows", m.Name(), len(m.InputLabels()), len(f.K))
		}
		for _, row := range f.K {
			if len(row) != len(m.StateLabels()) {
				return nil, dynamo.Invalidf("%s has %d states, gain row has %d", m.Name(), len(m.StateLabels()), len(row))
			}
		}
		return f, nil
	}

	return r
}

// Register adds or replaces a controller type.
func (r *Registry) Register(name string, f ControllerFactory) {
	r.controllers[name] = f
}

func (r *Registry) GetController(cfg config.ControllerConfig, model plants.Model, ts float64) (dynamo.Controller, error) {
	name := cfg.Type
	if name == "" {
		name = config.ControllerNone
	}
	fn, ok := r.controllers[name]
	if !ok {
		return nil, dynamo.Invalidf("unknown controller: %s", name)
	}
	return fn(cfg, model, ts)
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultMetrics are attached to every experiment loop.
func (r *Registry) DefaultMetrics(cfg *config.Config, model plants.Model, sys dynamo.System) []sim.Metric {
	return []sim.Metric{
		metrics.NewStability(10.0),
		metrics.NewControlEffort(),
		metrics.NewTrackingError(TrackedState(cfg, model)),
		metrics.NewEnergyDrift(sys),
	}
}

// TrackedState is the state index the reference is compared against.
func TrackedState(cfg *config.Config, model plants.Model) int {
	switch cfg.Controller.Type {
	case config.ControllerPID:
		sensor := model.Sensor()
		if cfg.Controller.Channel >= 0 && cfg.Controller.Channel < sensor.Dim() {
			return sensor.Channels[cfg.Controller.Channel]
		}
	case config.ControllerFeedback:
		if len(cfg.Controller.ReferenceStates) > 0 {
			return cfg.Controller.ReferenceStates[0]
		}
		if f := control.FeedbackFor(model.Name()); f != nil && len(f.RefStates) > 0 {
			return f.RefStates[0]
		}
	}
	return 0
}
