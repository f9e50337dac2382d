// Package experiment assembles a plant, a controller, a reference and
// metrics from a configuration into a runnable loop.
package experiment

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/plant"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/random"
	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/storage"
)

type Option func(*Experiment)

func WithLogger(log logr.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	log      logr.Logger

	plant *plant.Simulator
	loop  *sim.Loop
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Setup builds the plant from cfg.Seed. It must be called before Run.
func (e *Experiment) Setup() error {
	return e.SetupSeed(e.cfg.Seed)
}

// SetupSeed builds the plant with its own generator seeded from seed.
func (e *Experiment) SetupSeed(seed uint64) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	model, err := plants.Lookup(e.cfg.Plant)
	if err != nil {
		return err
	}

	p, err := plant.New(model, plant.Config{
		Ts:      e.cfg.Ts,
		Alpha:   e.cfg.Alpha,
		Scheme:  e.cfg.Scheme,
		Nominal: e.cfg.Nominal,
	}, e.cfg.GetInitState(), random.New(seed), plant.WithLogger(e.log.WithName("plant")))
	if err != nil {
		return err
	}

	ctrl, err := e.registry.GetController(e.cfg.Controller, model, e.cfg.Ts)
	if err != nil {
		return err
	}
	feedback, err := sim.ParseFeedback(e.cfg.FeedbackMode())
	if err != nil {
		return err
	}

	loop := sim.New(p, ctrl, e.cfg.Signal())
	loop.Feedback = feedback
	loop.Log = e.log.WithName("loop").WithValues("plant", model.Name(), "seed", seed)
	for _, m := range e.registry.DefaultMetrics(e.cfg, model, p.Dynamics()) {
		loop.AddMetric(m)
	}

	e.plant = p
	e.loop = loop
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.loop == nil {
		if err := e.Setup(); err != nil {
			return nil, err
		}
	}
	return e.loop.Run(ctx, e.cfg.Duration)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Plant returns the plant built by Setup.
func (e *Experiment) Plant() *plant.Simulator { return e.plant }

// Loop returns the loop built by Setup, for adding observers.
func (e *Experiment) Loop() *sim.Loop { return e.loop }

// Metadata describes a run of this experiment for storage and export.
func (e *Experiment) Metadata(result *sim.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Plant:      e.cfg.Plant,
		Seed:       e.cfg.Seed,
		Ts:         e.cfg.Ts,
		Duration:   e.cfg.Duration,
		Scheme:     e.cfg.Scheme.String(),
		Controller: e.cfg.Controller.Type,
		Feedback:   e.cfg.FeedbackMode(),
	}
	if e.loop != nil {
		meta.Feedback = e.loop.Feedback.String()
	}
	if e.plant != nil {
		model := e.plant.Model()
		meta.Scheme = e.plant.Scheme().String()
		meta.Alpha = e.plant.Params().Alpha()
		meta.Params = e.plant.Params().Values()
		meta.StateLabels = model.StateLabels()
		meta.InputLabels = model.InputLabels()
	}
	if result != nil {
		meta.ID = result.RunID
		meta.Steps = result.StepsTaken
		meta.Metrics = result.Metrics
	}
	return meta
}

// Ensemble runs cfg once per seed starting at cfg.Seed.
func Ensemble(cfg *config.Config, runs, parallelism int, opts ...Option) *sim.Ensemble {
	return &sim.Ensemble{
		Runs:        runs,
		SeedStart:   cfg.Seed,
		Parallelism: parallelism,
		Log:         New(cfg, opts...).log.WithName("ensemble"),
		Build: func(seed uint64) (*sim.Loop, error) {
			exp := New(cfg, opts...)
			if err := exp.SetupSeed(seed); err != nil {
				return nil, err
			}
			return exp.Loop(), nil
		},
	}
}
