package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/analysis"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/experiment"
	"github.com/san-kum/plantsim/internal/integrators"
	"github.com/san-kum/plantsim/internal/plant"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/random"
	"github.com/san-kum/plantsim/internal/viz"
)

var (
	samples     int
	runs        int
	parallelism int
	inputs      []float64
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [plant]",
		Short: "compare integration schemes against a fine RK4 reference",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareSchemes,
	}
	addConfigFlags(cmd)
	cmd.Flags().Float64SliceVar(&inputs, "input", nil, "constant open-loop input (default zero)")
	return cmd
}

func newNoiseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noise [plant]",
		Short: "characterise the sensor noise of a plant at its initial state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  noiseStudy,
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&samples, "samples", 4096, "number of measurements")
	return cmd
}

func newEnsembleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ensemble [plant]",
		Short: "run one configuration over many seeds and summarise the metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addConfigFlags(cmd)
	cmd.Flags().IntVar(&runs, "runs", 20, "number of seeds")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "maximum concurrent runs (0 for no limit)")
	return cmd
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench [plant]",
		Short: "measure stepping throughput per scheme and sample period",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchPlant,
	}
	addConfigFlags(cmd)
	return cmd
}

func compareSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}
	model, err := plants.Lookup(cfg.Plant)
	if err != nil {
		return err
	}

	// Exact nominal parameters: every scheme integrates the same system.
	p, err := plant.New(model, plant.Config{Ts: cfg.Ts, Alpha: plant.Alpha(0), Nominal: cfg.Nominal},
		cfg.GetInitState(), random.New(cfg.Seed))
	if err != nil {
		return err
	}
	sys := p.Dynamics()

	u := make(dynamo.Control, sys.ControlDim())
	if len(inputs) > 0 {
		if len(inputs) != len(u) {
			return dynamo.Invalidf("%s takes %d inputs, got %d", cfg.Plant, len(u), len(inputs))
		}
		copy(u, inputs)
	}
	x0 := dynamo.State(cfg.GetInitState())

	fmt.Printf("comparing schemes for %s (ts=%.4f, duration=%.1fs, reference rk4 at ts/%d)\n\n",
		cfg.Plant, cfg.Ts, cfg.Duration, analysis.ReferenceDivisions)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SCHEME\tSTAGES\tERROR\tORDER\tTIME_MS\t")

	for _, s := range integrators.Schemes {
		start := time.Now()
		e, err := analysis.SchemeError(sys, s, x0, u, cfg.Ts, cfg.Duration)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\t%d\terror: %v\t\t\t\n", s, s.Stages(), err)
			continue
		}
		order, err := analysis.ObservedOrder(sys, s, x0, u, cfg.Ts, cfg.Duration)
		if err != nil {
			fmt.Fprintf(w, "%s\t%d\t%.3e\terror: %v\t\t\n", s, s.Stages(), e, err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.3e\t%.2f\t%.2f\t\n", s, s.Stages(), e, order, float64(elapsed.Microseconds())/1000)
	}
	return w.Flush()
}

func noiseStudy(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}
	if samples < 4 {
		return dynamo.Invalidf("need at least 4 samples, got %d", samples)
	}
	model, err := plants.Lookup(cfg.Plant)
	if err != nil {
		return err
	}

	p, err := plant.New(model, plant.Config{Ts: cfg.Ts, Alpha: cfg.Alpha, Scheme: cfg.Scheme, Nominal: cfg.Nominal},
		cfg.GetInitState(), random.New(cfg.Seed), plant.WithLogger(log))
	if err != nil {
		return err
	}

	sensor := p.Sensor()
	x := p.State()
	errs := make([][]float64, sensor.Dim())
	for k := 0; k < samples; k++ {
		y := p.Measure()
		for i, ch := range sensor.Channels {
			errs[i] = append(errs[i], y[i]-x[ch])
		}
	}

	fmt.Printf("sensor noise of %s over %d measurements\n\n", cfg.Plant, samples)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CHANNEL\tSIGMA\tMEAN\tSTDDEV\tFLATNESS\tAUTOCORR(1)\t")
	for i, e := range errs {
		s := analysis.Describe(e)
		fmt.Fprintf(w, "%s\t%.4g\t%.3e\t%.4g\t%.3f\t%.3f\t\n",
			sensor.Label(i), sensor.StdDev[i], s.Mean, s.StdDev, analysis.SpectralFlatness(e), analysis.Autocorrelation(e, 1))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.Chart(errs[0], sensor.Label(0)+" noise", 80, 8))
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, err := experiment.Ensemble(cfg, runs, parallelism, experiment.WithLogger(log)).Run(ctx, cfg.Duration)
	if err != nil {
		return err
	}

	metrics := make([]map[string]float64, len(results))
	finals := make([][]float64, len(results))
	for i, r := range results {
		metrics[i] = r.Metrics
		finals[i] = r.Final
	}
	summary := analysis.SummarizeMetrics(metrics)

	fmt.Printf("%s: %d seeds from %d in %v\n\n", cfg.Plant, runs, cfg.Seed, time.Since(start))

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	slices.Sort(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX\t")
	for _, name := range names {
		s := summary[name]
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t\n", name, s.Mean, s.StdDev, s.Min, s.Max)
	}
	fmt.Fprintln(w, "\t\t\t\t\t")
	fmt.Fprintln(w, "FINAL STATE\tMEAN\tSTDDEV\tMIN\tMAX\t")
	model, _ := plants.Lookup(cfg.Plant)
	for j, s := range analysis.ChannelStats(finals) {
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t\n", label(model.StateLabels(), j), s.Mean, s.StdDev, s.Min, s.Max)
	}
	return w.Flush()
}

func benchPlant(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s over %.1fs\n\n", cfg.Plant, cfg.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCHEME\tTS\tSTEPS\tTIME\tSTEPS/SEC")

	for _, s := range integrators.Schemes {
		for _, step := range []float64{0.001, 0.01, 0.1} {
			c := cfg.Clone()
			c.Scheme = s
			c.Ts = step

			exp := experiment.New(c)
			start := time.Now()
			result, err := exp.Run(context.Background())
			elapsed := time.Since(start)
			if err != nil {
				fmt.Fprintf(w, "%s\t%.4fs\terror: %v\t\t\n", s, step, err)
				continue
			}

			fmt.Fprintf(w, "%s\t%.4fs\t%d\t%v\t%.0f\n",
				s, step, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds())
		}
	}
	return w.Flush()
}
