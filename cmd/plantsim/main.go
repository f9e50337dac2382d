package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = logr.Discard()

// main registers the commands and exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "plantsim",
		Short:         "uncertain plant and feedback control simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose, jsonLog)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".plantsim", "data directory")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "log verbosity (repeat for more)")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "log-json", false, "log as json")

	rootCmd.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newRunsCmd(),
		newCompareCmd(),
		newNoiseCmd(),
		newEnsembleCmd(),
		newBenchCmd(),
		newTuneCmd(),
		newSweepCmd(),
		newMonteCarloCmd(),
		newScenarioCmd(),
		newPlantsCmd(),
		newPresetsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds a zap logger behind logr. Verbosity n enables logr
// V-levels up to n.
func newLogger(v int, asJSON bool) (logr.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if asJSON {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-v))
	cfg.DisableStacktrace = v == 0

	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("build logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}
