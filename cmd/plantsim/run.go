package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/automation"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/experiment"
	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/storage"
	"github.com/san-kum/plantsim/internal/tui"
	"github.com/san-kum/plantsim/internal/viz"
)

var (
	noSave    bool
	outputs   []string
	showPlots bool
	speed     float64
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run one closed-loop simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(cmd)
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run in the data directory")
	cmd.Flags().StringSliceVarP(&outputs, "output", "o", nil, "also write the run to these files (.csv, .json, .png, .svg, .pdf)")
	cmd.Flags().BoolVar(&showPlots, "plot", true, "print trajectory charts")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [plant]",
		Short: "animate a simulation in the terminal as it runs",
		Args:  cobra.MaximumNArgs(1),
		RunE:  watchSimulation,
	}
	addConfigFlags(cmd)
	cmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per wall-clock second (0 runs unpaced)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run in the data directory")
	return cmd
}

func plantArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// signalContext is cancelled by an interrupt, stopping runs between steps.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(log))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Info("running simulation", "plant", cfg.Plant, "controller", cfg.Controller.Type, "duration", cfg.Duration)
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	meta := exp.Metadata(result)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if _, err := st.Save(meta, result); err != nil {
			return err
		}
	}
	for _, path := range outputs {
		if err := automation.Save(path, meta, result); err != nil {
			return err
		}
		log.V(1).Info("wrote output", "path", path)
	}

	fmt.Println(runSummary(meta, result, elapsed, runErr))
	if showPlots {
		fmt.Println(trajectoryCharts(meta, result))
	}
	return runErr
}

func watchSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, plantArg(args))
	if err != nil {
		return err
	}
	if speed < 0 {
		return dynamo.Invalidf("speed must not be negative, got %g", speed)
	}

	exp := experiment.New(cfg, experiment.WithLogger(log))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	result, runErr := tui.Run(ctx, exp, speed)
	if result == nil {
		return runErr
	}
	if errors.Is(runErr, dynamo.ErrContextCanceled) {
		fmt.Printf("stopped at t=%.2fs\n", float64(result.StepsTaken)*cfg.Ts)
		return nil
	}

	meta := exp.Metadata(result)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if _, err := st.Save(meta, result); err != nil {
			return err
		}
	}
	fmt.Println(runSummary(meta, result, time.Since(start), runErr))
	return runErr
}

func runSummary(meta storage.RunMetadata, result *sim.Result, elapsed time.Duration, err error) string {
	fields := []viz.Field{
		{Label: "run id", Value: result.RunID},
		{Label: "scheme", Value: meta.Scheme},
		{Label: "controller", Value: meta.Controller},
		{Label: "feedback", Value: meta.Feedback},
		{Label: "alpha", Value: fmt.Sprintf("%g", meta.Alpha)},
		{Label: "steps", Value: fmt.Sprintf("%d", result.StepsTaken)},
		{Label: "elapsed", Value: elapsed.String()},
		{Label: "final", Value: formatState(meta.StateLabels, result.Final)},
	}
	return viz.Summary{Title: meta.Plant, Fields: fields, Metrics: result.Metrics, Err: err}.Render()
}

func formatState(labels []string, x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		name := fmt.Sprintf("x%d", i)
		if i < len(labels) {
			name = labels[i]
		}
		parts[i] = fmt.Sprintf("%s=%.4f", name, v)
	}
	return strings.Join(parts, " ")
}

func trajectoryCharts(meta storage.RunMetadata, result *sim.Result) string {
	var sb strings.Builder
	for i := range result.Final {
		caption := fmt.Sprintf("x%d", i)
		if i < len(meta.StateLabels) {
			caption = meta.StateLabels[i]
		}
		sb.WriteString(viz.Chart(result.StateSeries(i), caption, 80, 8))
		sb.WriteString("\n\n")
	}
	for i := range meta.InputLabels {
		sb.WriteString(viz.Chart(result.InputSeries(i), meta.InputLabels[i], 80, 6))
		sb.WriteString("\n\n")
	}
	return sb.String()
}
