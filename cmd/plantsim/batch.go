package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/automation"
	"github.com/san-kum/plantsim/internal/experiment"
	"github.com/san-kum/plantsim/internal/optim"
	"github.com/san-kum/plantsim/internal/storage"
	"github.com/san-kum/plantsim/internal/viz"
)

var (
	gridAxes     []string
	tuneMetric   string
	tuneNominal  bool
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	perturbation float64
	trials       int
	bound        float64
	outputDir    string
	storeRuns    bool
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search controller gains or nominal parameters",
		Example: "  plantsim tune satellite --preset pid --grid Kp=0.5:4:8 --grid Kd=0:10:6\n" +
			"  plantsim tune satellite --preset point --nominal-grid --grid b=0:0.2:5",
		Args: cobra.MaximumNArgs(1),
		RunE: tuneGains,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringArrayVar(&gridAxes, "grid", nil, "search axis name=lo:hi:n (repeatable)")
	cmd.Flags().StringVar(&tuneMetric, "metric", "tracking_error", "metric to minimise")
	cmd.Flags().BoolVar(&tuneNominal, "nominal-grid", false, "search nominal plant parameters instead of controller gains")
	_ = cmd.MarkFlagRequired("grid")
	return cmd
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [plant]",
		Short: "sweep one nominal parameter and report energy and metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", "", "nominal parameter to sweep")
	cmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "maximum concurrent runs (0 for no limit)")
	_ = cmd.MarkFlagRequired("param")
	return cmd
}

func newMonteCarloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo [plant]",
		Short: "run trials from perturbed initial states and count the stable ones",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(cmd)
	cmd.Flags().Float64Var(&perturbation, "perturbation", 0.1, "maximum perturbation of each initial state channel")
	cmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	cmd.Flags().Float64Var(&bound, "bound", 1e6, "final state magnitude counted as unstable")
	cmd.Flags().IntVar(&parallelism, "parallel", 0, "maximum concurrent runs (0 for no limit)")
	return cmd
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().StringVar(&outputDir, "out", "", "directory for save_as paths (default: next to the scenario)")
	cmd.Flags().BoolVar(&storeRuns, "store", false, "also store every step in the data directory")
	return cmd
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	names := make([]string, len(gridAxes))
	ranges := make([][]float64, len(gridAxes))
	for i, s := range gridAxes {
		axis, err := parseGridAxis(s)
		if err != nil {
			return err
		}
		names[i] = axis.Name
		ranges[i] = optim.Linspace(axis.Lo, axis.Hi, axis.N)
	}

	build := optim.ControllerGains(cfg)
	if tuneNominal {
		build = optim.NominalParams(cfg)
	}

	gs := optim.NewGridSearch(names, ranges)
	gs.Log = log.WithName("tune")

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("searching %d points of %v for the lowest %s\n\n", gs.Size(), names, tuneMetric)
	best, value, err := gs.Search(ctx, build, tuneMetric)
	if err != nil {
		return err
	}

	fields := make([]viz.Field, 0, len(names)+1)
	for _, name := range names {
		fields = append(fields, viz.Field{Label: name, Value: fmt.Sprintf("%.6g", best[name])})
	}
	fields = append(fields, viz.Field{Label: tuneMetric, Value: fmt.Sprintf("%.6g", value)})
	fmt.Println(viz.Summary{Title: "best " + cfg.Plant + " point", Fields: fields}.Render())
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sweep := &automation.ParameterSweep{
		Base:        cfg,
		Param:       sweepParam,
		Min:         sweepMin,
		Max:         sweepMax,
		Steps:       sweepSteps,
		Parallelism: parallelism,
	}
	results, err := automation.RunSweep(ctx, sweep, automation.WithLogger(log))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\tMIN_ENERGY\tMAX_ENERGY\tTRACKING\tEFFORT\tFINAL\t\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.4g\t%.4g\t%.4g\t%.4g\t%s\t\n",
			r.Value, r.MinEnergy, r.MaxEnergy, r.Metrics["tracking_error"], r.Metrics["control_effort"], formatState(nil, r.Final))
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		Trials:       trials,
		Bound:        bound,
		Parallelism:  parallelism,
	}, automation.WithLogger(log))
	if err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fraction := float64(stable) / float64(len(results))
	fmt.Println(viz.Summary{
		Title: cfg.Plant + " monte carlo",
		Fields: []viz.Field{
			{Label: "trials", Value: fmt.Sprintf("%d", len(results))},
			{Label: "stable", Value: fmt.Sprintf("%d", stable)},
			{Label: "unstable", Value: fmt.Sprintf("%d", unstable)},
			{Label: "", Value: viz.ProgressBar(fraction, 40)},
		},
	}.Render())

	for _, r := range results {
		if r.Err != nil {
			log.V(1).Info("trial failed", "trial", r.Trial, "seed", r.Seed, "error", r.Err.Error())
		}
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(args[0])
	}
	opts := []automation.Option{
		automation.WithLogger(log),
		automation.WithOutputDir(dir),
		automation.WithRegistry(experiment.NewRegistry()),
	}
	if storeRuns {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		opts = append(opts, automation.WithStore(st))
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunScenario(ctx, scenario, opts...)
	for _, r := range results {
		fmt.Println(viz.Summary{
			Title: scenario.Name + " / " + r.Name,
			Fields: []viz.Field{
				{Label: "plant", Value: r.Meta.Plant},
				{Label: "run id", Value: r.Result.RunID},
				{Label: "steps", Value: fmt.Sprintf("%d", r.Result.StepsTaken)},
				{Label: "final", Value: formatState(r.Meta.StateLabels, r.Result.Final)},
			},
			Metrics: r.Result.Metrics,
		}.Render())
	}
	return err
}
