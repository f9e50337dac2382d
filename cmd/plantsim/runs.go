package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/plantsim/internal/analysis"
	"github.com/san-kum/plantsim/internal/export"
	"github.com/san-kum/plantsim/internal/storage"
	"github.com/san-kum/plantsim/internal/viz"
)

var (
	plotPath   string
	phaseAxes  []int
	maxCharted int
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "inspect stored runs",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "chart a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&maxCharted, "max", 6, "maximum number of state channels to chart")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "render the state trajectories of a run to an image",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVarP(&plotPath, "output", "o", "", "image path (default <run_id>.png)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "per-channel statistics and a phase portrait",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntSliceVar(&phaseAxes, "phase", []int{0, 1}, "state indices for the phase portrait axes")

	cmd.AddCommand(listCmd, showCmd, exportCmd, plotCmd, analyzeCmd)
	return cmd
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tDURATION\tTS\tSCHEME\tCTRL\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%d\n",
			run.ID,
			run.Plant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ts,
			run.Scheme,
			run.Controller,
			run.Seed,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, [][]float64, []float64, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, states, times, nil
}

func column(rows [][]float64, j int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if j < len(r) {
			out[i] = r[j]
		}
	}
	return out
}

func label(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("x%d", i)
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, states, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Println(viz.Summary{
		Title: meta.Plant,
		Fields: []viz.Field{
			{Label: "run id", Value: meta.ID},
			{Label: "samples", Value: fmt.Sprintf("%d", len(states))},
			{Label: "scheme", Value: meta.Scheme},
			{Label: "controller", Value: meta.Controller},
		},
		Metrics: meta.Metrics,
	}.Render())

	n := min(len(states[0]), maxCharted)
	for j := 0; j < n; j++ {
		fmt.Println(viz.Chart(column(states, j), label(meta.StateLabels, j), 80, 10))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, states, times, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := plotPath
	if path == "" {
		path = meta.ID + ".png"
	}

	series := make([]export.Series, len(states[0]))
	for j := range series {
		series[j] = export.Series{Name: label(meta.StateLabels, j), X: times, Y: column(states, j)}
	}
	if err := export.SavePlot(path, meta.Plant+" "+meta.ID, "time (s)", "state", series...); err != nil {
		return err
	}
	fmt.Println("wrote", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, states, _, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Plant)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "STATE\tMEAN\tSTDDEV\tMIN\tMAX\tAUTOCORR(1)\t")
	for j, s := range analysis.ChannelStats(states) {
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.4g\t%.4g\t%.3f\t\n",
			label(meta.StateLabels, j), s.Mean, s.StdDev, s.Min, s.Max, analysis.Autocorrelation(column(states, j), 1))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(phaseAxes) != 2 {
		return fmt.Errorf("--phase takes two state indices, got %v", phaseAxes)
	}
	xi, yi := phaseAxes[0], phaseAxes[1]
	if xi < 0 || yi < 0 || xi >= len(states[0]) || yi >= len(states[0]) {
		return fmt.Errorf("--phase indices %v outside a %d-dimensional state", phaseAxes, len(states[0]))
	}

	fmt.Printf("\nphase portrait: %s vs %s\n", label(meta.StateLabels, yi), label(meta.StateLabels, xi))
	fmt.Println(analysis.NewPhasePortrait(column(states, xi), column(states, yi)).ASCII(70, 20))
	return nil
}
