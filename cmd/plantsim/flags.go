package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/integrators"
)

var (
	dataDir string
	verbose int
	jsonLog bool

	ts         float64
	duration   float64
	scheme     string
	alpha      float64
	seed       uint64
	feedback   string
	initState  []float64
	nominal    map[string]string
	configFile string
	preset     string

	controller string
	kp         float64
	ki         float64
	kd         float64
	channel    int
	limit      float64

	refType   string
	refAmp    float64
	refFreq   float64
	refOffset float64
	refTime   float64
)

// addConfigFlags registers the flags that build a config.Config.
func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&preset, "preset", "", "start from a preset of the plant")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.Float64Var(&ts, "ts", config.DefaultTs, "sample period")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.StringVar(&scheme, "scheme", "rk4", "integration scheme (rk1, rk2, rk4)")
	f.Float64Var(&alpha, "alpha", 0.2, "parameter uncertainty fraction")
	f.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.StringVar(&feedback, "feedback", "measurement", "feed back the measurement or the true state")
	f.Float64SliceVar(&initState, "init", nil, "initial state")
	f.StringToStringVar(&nominal, "nominal", nil, "nominal parameter overrides, name=value")

	f.StringVar(&controller, "controller", config.ControllerNone, "controller (none, constant, pid, feedback)")
	f.Float64Var(&kp, "kp", 0, "pid kp")
	f.Float64Var(&ki, "ki", 0, "pid ki")
	f.Float64Var(&kd, "kd", 0, "pid kd")
	f.IntVar(&channel, "channel", 0, "pid measurement channel")
	f.Float64Var(&limit, "limit", 0, "pid output limit (0 for none)")

	f.StringVar(&refType, "ref", config.ReferenceConstant, "reference (constant, step, square, sine)")
	f.Float64Var(&refAmp, "ref-amp", 0, "reference amplitude, or the level after a step")
	f.Float64Var(&refFreq, "ref-freq", 0, "reference frequency in hz")
	f.Float64Var(&refOffset, "ref-offset", 0, "reference offset, or the level before a step")
	f.Float64Var(&refTime, "ref-time", 0, "step time")
}

// buildConfig layers the preset, the config file and the changed flags, in
// that order, over the defaults for plantName.
func buildConfig(cmd *cobra.Command, plantName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if plantName != "" {
		cfg.Plant = plantName
	}

	if preset != "" {
		p := config.GetPreset(cfg.Plant, preset)
		if p == nil {
			return nil, dynamo.Invalidf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Plant))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if plantName != "" && loaded.Plant != plantName {
			return nil, dynamo.Invalidf("config file is for %s, not %s", loaded.Plant, plantName)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("ts") {
		cfg.Ts = ts
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("scheme") {
		s, err := integrators.ParseScheme(scheme)
		if err != nil {
			return nil, err
		}
		cfg.Scheme = s
	}
	if flags.Changed("alpha") {
		a := alpha
		cfg.Alpha = &a
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("feedback") {
		cfg.Feedback = feedback
	}
	if flags.Changed("init") {
		cfg.InitialState = append([]float64(nil), initState...)
	}
	if flags.Changed("nominal") {
		overrides, err := parseNominal(nominal)
		if err != nil {
			return nil, err
		}
		if cfg.Nominal == nil {
			cfg.Nominal = make(map[string]float64, len(overrides))
		}
		for k, v := range overrides {
			cfg.Nominal[k] = v
		}
	}

	c := &cfg.Controller
	if flags.Changed("controller") {
		c.Type = controller
	}
	if flags.Changed("kp") {
		c.Kp = kp
	}
	if flags.Changed("ki") {
		c.Ki = ki
	}
	if flags.Changed("kd") {
		c.Kd = kd
	}
	if flags.Changed("channel") {
		c.Channel = channel
	}
	if flags.Changed("limit") {
		c.Limit = limit
	}

	r := &cfg.Reference
	if flags.Changed("ref") {
		r.Type = refType
	}
	if flags.Changed("ref-amp") {
		r.Amplitude = refAmp
		r.After = refAmp
	}
	if flags.Changed("ref-freq") {
		r.Frequency = refFreq
	}
	if flags.Changed("ref-offset") {
		r.Offset = refOffset
		r.Before = refOffset
	}
	if flags.Changed("ref-time") {
		r.Time = refTime
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseNominal(raw map[string]string) (map[string]float64, error) {
	out := make(map[string]float64, len(raw))
	for name, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, dynamo.Invalidf("nominal %s: %v", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// gridAxis is one "name=lo:hi:n" tuning axis.
type gridAxis struct {
	Name   string
	Lo, Hi float64
	N      int
}

func parseGridAxis(s string) (gridAxis, error) {
	name, bounds, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return gridAxis{}, dynamo.Invalidf("grid axis %q is not name=lo:hi:n", s)
	}
	parts := strings.Split(bounds, ":")
	if len(parts) != 3 {
		return gridAxis{}, dynamo.Invalidf("grid axis %q is not name=lo:hi:n", s)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return gridAxis{}, dynamo.Invalidf("grid axis %s: %v", name, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return gridAxis{}, dynamo.Invalidf("grid axis %s: %v", name, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return gridAxis{}, dynamo.Invalidf("grid axis %s: need a positive point count, got %q", name, parts[2])
	}
	return gridAxis{Name: name, Lo: lo, Hi: hi, N: n}, nil
}
