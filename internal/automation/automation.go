// Package automation runs scripted batches of experiments: yaml scenarios,
// sweeps over one nominal parameter and Monte Carlo trials over perturbed
// initial states.
package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/experiment"
	"github.com/san-kum/plantsim/internal/export"
	"github.com/san-kum/plantsim/internal/optim"
	"github.com/san-kum/plantsim/internal/random"
	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/storage"
)

// Scenario defines a scripted simulation sequence
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single step in a scenario. Preset names a
// "plant/preset" starting point; Config fields override it.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
	// SaveAs writes the run to a file whose extension picks the format:
	// .csv, .json, or an image format for a state plot.
	SaveAs string `yaml:"save_as"`
}

// StepResult pairs a scenario step with its run.
type StepResult struct {
	Name   string
	Config *config.Config
	Meta   storage.RunMetadata
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, dynamo.Invalidf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the configuration of one step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		plantName, presetName, ok := strings.Cut(s.Preset, "/")
		if !ok {
			return nil, dynamo.Invalidf("preset %q is not of the form plant/name", s.Preset)
		}
		cfg = config.GetPreset(plantName, presetName)
		if cfg == nil {
			return nil, dynamo.Invalidf("unknown preset %q", s.Preset)
		}
	}
	if s.Config.Kind != 0 {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, err)
		}
	}
	return cfg, cfg.Validate()
}

type options struct {
	log       logr.Logger
	outputDir string
	store     *storage.Store
	registry  *experiment.Registry
}

type Option func(*options)

func WithLogger(log logr.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithOutputDir resolves relative save_as paths against dir.
func WithOutputDir(dir string) Option {
	return func(o *options) { o.outputDir = dir }
}

// WithStore additionally persists every run in st.
func WithStore(st *storage.Store) Option {
	return func(o *options) { o.store = st }
}

func WithRegistry(r *experiment.Registry) Option {
	return func(o *options) { o.registry = r }
}

func buildOptions(opts []Option) options {
	o := options{log: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) experiment(cfg *config.Config) *experiment.Experiment {
	expOpts := []experiment.Option{experiment.WithLogger(o.log)}
	if o.registry != nil {
		expOpts = append(expOpts, experiment.WithRegistry(o.registry))
	}
	return experiment.New(cfg, expOpts...)
}

// RunScenario executes the steps in order and stops at the first failure.
// Results of completed steps are returned with the error.
func RunScenario(ctx context.Context, scenario *Scenario, opts ...Option) ([]StepResult, error) {
	o := buildOptions(opts)
	log := o.log.WithName("scenario").WithValues("scenario", scenario.Name)
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%d", i+1)
		}
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		log.Info("running step", "step", i+1, "of", len(scenario.Steps), "name", name, "plant", cfg.Plant)

		exp := o.experiment(cfg)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		meta := exp.Metadata(result)
		if step.SaveAs != "" {
			path := step.SaveAs
			if o.outputDir != "" && !filepath.IsAbs(path) {
				path = filepath.Join(o.outputDir, path)
			}
			if err := Save(path, meta, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			log.V(1).Info("saved step", "name", name, "path", path)
		}
		if o.store != nil {
			if _, err := o.store.Save(meta, result); err != nil {
				return results, fmt.Errorf("step %d store: %w", i+1, err)
			}
		}

		results = append(results, StepResult{Name: name, Config: cfg, Meta: meta, Result: result})
	}

	return results, nil
}

// Save writes a run to path in the format named by its extension.
func Save(path string, meta storage.RunMetadata, result *sim.Result) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return export.ExportJSON(path, meta, result)
	case ".csv":
		return storage.WriteFile(path, func(w io.Writer) error {
			return storage.WriteCSV(w, result, meta.StateLabels, meta.InputLabels)
		})
	case ".png", ".svg", ".pdf", ".eps", ".jpg", ".jpeg", ".tif", ".tiff":
		return export.PlotStates(path, meta, result)
	}
	return dynamo.Invalidf("cannot save to %q: unknown format", path)
}

// ParameterSweep runs the base configuration once per value of one nominal
// parameter, evenly spaced over [Min, Max].
type ParameterSweep struct {
	Base        *config.Config
	Param       string
	Min         float64
	Max         float64
	Steps       int
	Parallelism int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	Value     float64
	Final     dynamo.State
	Metrics   map[string]float64
	MaxEnergy float64
	MinEnergy float64
}

// Values returns the swept parameter values.
func (s *ParameterSweep) Values() []float64 {
	return optim.Linspace(s.Min, s.Max, s.Steps)
}

func (s *ParameterSweep) validate() error {
	if s.Base == nil {
		return dynamo.Invalidf("sweep has no base configuration")
	}
	if s.Steps < 1 {
		return dynamo.Invalidf("sweep needs at least one step, got %d", s.Steps)
	}
	if math.IsNaN(s.Min) || math.IsNaN(s.Max) || math.IsInf(s.Min, 0) || math.IsInf(s.Max, 0) {
		return dynamo.Invalidf("sweep bounds must be finite")
	}
	trial := s.Base.Clone()
	if trial.Nominal == nil {
		trial.Nominal = map[string]float64{}
	}
	trial.Nominal[s.Param] = s.Min
	return trial.Validate()
}

// RunSweep executes a parameter sweep. Results are in value order.
func RunSweep(ctx context.Context, sweep *ParameterSweep, opts ...Option) ([]SweepResult, error) {
	if err := sweep.validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	log := o.log.WithName("sweep").WithValues("param", sweep.Param)

	values := sweep.Values()
	results := make([]SweepResult, len(values))

	g, ctx := errgroup.WithContext(ctx)
	if sweep.Parallelism > 0 {
		g.SetLimit(sweep.Parallelism)
	}

	for i, v := range values {
		g.Go(func() error {
			cfg := sweep.Base.Clone()
			if cfg.Nominal == nil {
				cfg.Nominal = map[string]float64{}
			}
			cfg.Nominal[sweep.Param] = v

			exp := o.experiment(cfg)
			if err := exp.Setup(); err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
			}
			result, err := exp.Run(ctx)
			if err != nil {
				return fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
			}

			res := SweepResult{Value: v, Final: result.Final, Metrics: result.Metrics}
			if h, ok := exp.Plant().Dynamics().(dynamo.Hamiltonian); ok {
				res.MinEnergy, res.MaxEnergy = energyRange(h, result)
			}
			results[i] = res

			log.V(1).Info("sweep point done", "index", i+1, "of", len(values), "value", v)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func energyRange(h dynamo.Hamiltonian, result *sim.Result) (lo, hi float64) {
	if len(result.Samples) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	observe := func(x dynamo.State) {
		e := h.Energy(x)
		lo = math.Min(lo, e)
		hi = math.Max(hi, e)
	}
	for _, s := range result.Samples {
		observe(s.X)
	}
	observe(result.Final)
	return lo, hi
}

// MonteCarloConfig perturbs the initial state of Base uniformly by up to
// Perturbation in every channel. Each trial also draws its own plant
// parameters from its seed.
type MonteCarloConfig struct {
	Base         *config.Config
	Perturbation float64
	Trials       int
	// Bound marks a trial unstable once any final state exceeds it.
	Bound       float64
	Parallelism int
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	Trial      int
	Seed       uint64
	InitState  dynamo.State
	FinalState dynamo.State
	Stable     bool
	Err        error
}

const defaultBound = 1e6

// RunMonteCarlo executes the trials. A trial that fails numerically is
// reported as unstable rather than aborting the batch.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, opts ...Option) ([]MonteCarloResult, error) {
	if mc.Base == nil {
		return nil, dynamo.Invalidf("monte carlo has no base configuration")
	}
	if mc.Trials < 1 {
		return nil, dynamo.Invalidf("monte carlo needs at least one trial, got %d", mc.Trials)
	}
	if !(mc.Perturbation >= 0) {
		return nil, dynamo.Invalidf("perturbation must be non-negative, got %g", mc.Perturbation)
	}
	if err := mc.Base.Validate(); err != nil {
		return nil, err
	}
	bound := mc.Bound
	if bound <= 0 {
		bound = defaultBound
	}

	o := buildOptions(opts)
	log := o.log.WithName("montecarlo")
	results := make([]MonteCarloResult, mc.Trials)
	base := mc.Base.GetInitState()

	g, gctx := errgroup.WithContext(ctx)
	if mc.Parallelism > 0 {
		g.SetLimit(mc.Parallelism)
	}

	for trial := 0; trial < mc.Trials; trial++ {
		seed := mc.Base.Seed + uint64(trial)
		g.Go(func() error {
			init := dynamo.State(base).Clone()
			if mc.Perturbation > 0 {
				// A separate stream keeps the plant's parameter draws
				// identical to an unperturbed run with the same seed.
				dist := distuv.Uniform{Min: -mc.Perturbation, Max: mc.Perturbation, Src: random.New(^seed)}
				for i := range init {
					init[i] += dist.Rand()
				}
			}

			cfg := mc.Base.Clone()
			cfg.Seed = seed
			cfg.InitialState = init

			res := MonteCarloResult{Trial: trial, Seed: seed, InitState: init}
			exp := o.experiment(cfg)
			if err := exp.Setup(); err != nil {
				return err
			}
			result, err := exp.Run(gctx)
			if result != nil {
				res.FinalState = result.Final
			}
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				res.Err = err
			}
			res.Stable = err == nil && bounded(res.FinalState, bound)
			results[trial] = res

			if (trial+1)%10 == 0 {
				log.V(1).Info("trials complete", "done", trial+1, "of", mc.Trials)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func bounded(x dynamo.State, bound float64) bool {
	if !x.IsValid() {
		return false
	}
	for _, v := range x {
		if math.Abs(v) > bound {
			return false
		}
	}
	return true
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
