package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/config"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/viz"
)

func newPlantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plants",
		Short: "list the plants with their states, inputs and nominal parameters",
		Args:  cobra.NoArgs,
		RunE:  listPlants,
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [plant]",
		Short: "list the presets of one or every plant",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}
}

func listPlants(cmd *cobra.Command, args []string) error {
	for _, name := range plants.Names() {
		model, err := plants.Lookup(name)
		if err != nil {
			return err
		}

		nominal := model.Nominal()
		exempt := strings.Join(model.Exempt(), ",")
		if exempt == "" {
			exempt = "-"
		}
		sensor := model.Sensor()
		channels := make([]string, sensor.Dim())
		for i := range channels {
			channels[i] = fmt.Sprintf("%s (sigma %.3g)", sensor.Label(i), sensor.StdDev[i])
		}

		fmt.Println(viz.Summary{
			Title: name,
			Fields: []viz.Field{
				{Label: "states", Value: strings.Join(model.StateLabels(), " ")},
				{Label: "inputs", Value: strings.Join(model.InputLabels(), " ")},
				{Label: "sensor", Value: strings.Join(channels, ", ")},
				{Label: "exact", Value: exempt},
			},
			Metrics: nominal,
		}.Render())
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := plants.Names()
	if len(args) == 1 {
		if _, err := plants.Lookup(args[0]); err != nil {
			return err
		}
		names = args
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLANT\tPRESET\tCONTROLLER\tSCHEME\tTS\tDURATION")
	for _, plant := range names {
		for _, name := range config.ListPresets(plant) {
			p := config.GetPreset(plant, name)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4g\t%.4g\n",
				plant, name, p.Controller.Type, p.Scheme, p.Ts, p.Duration)
		}
	}
	return w.Flush()
}
