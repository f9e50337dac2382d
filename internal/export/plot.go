package export

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/plantsim/internal/sim"
	"github.com/san-kum/plantsim/internal/storage"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// Series is one named line of a plot.
type Series struct {
	Name string
	X, Y []float64
}

func (s Series) xys() (plotter.XYs, error) {
	if len(s.X) != len(s.Y) {
		return nil, fmt.Errorf("series %s: %d x values for %d y values", s.Name, len(s.X), len(s.Y))
	}
	pts := make(plotter.XYs, len(s.X))
	for i := range s.X {
		pts[i].X = s.X[i]
		pts[i].Y = s.Y[i]
	}
	return pts, nil
}

// SavePlot draws the series as lines and saves them to path. The image
// format follows the file extension (png, svg, pdf, eps, jpg, tif).
func SavePlot(path, title, xlabel, ylabel string, series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("plot %s: no series", title)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	lines := make([]interface{}, 0, 2*len(series))
	for _, s := range series {
		if len(s.X) == 0 {
			continue
		}
		pts, err := s.xys()
		if err != nil {
			return err
		}
		lines = append(lines, s.Name, pts)
	}
	if len(lines) == 0 {
		return fmt.Errorf("plot %s: all series are empty", title)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create directory: %w", err)
		}
	}
	return p.Save(plotWidth, plotHeight, path)
}

// PlotStates saves the state trajectories of a run together with the
// reference.
func PlotStates(path string, meta storage.RunMetadata, result *sim.Result) error {
	t := result.Times()
	series := []Series{{Name: "ref", X: t, Y: result.ReferenceSeries()}}
	for i, name := range labels("x", meta.StateLabels, stateDim(result)) {
		series = append(series, Series{Name: name, X: t, Y: result.StateSeries(i)})
	}
	return SavePlot(path, meta.Plant+" state", "time (s)", "state", series...)
}

// PlotInputs saves the applied inputs of a run.
func PlotInputs(path string, meta storage.RunMetadata, result *sim.Result) error {
	t := result.Times()
	var series []Series
	for i, name := range labels("u", meta.InputLabels, inputDim(result)) {
		series = append(series, Series{Name: name, X: t, Y: result.InputSeries(i)})
	}
	return SavePlot(path, meta.Plant+" input", "time (s)", "input", series...)
}

func labels(prefix string, names []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		if i < len(names) && names[i] != "" {
			out[i] = names[i]
		} else {
			out[i] = fmt.Sprintf("%s%d", prefix, i)
		}
	}
	return out
}

func stateDim(r *sim.Result) int {
	if len(r.Samples) == 0 {
		return 0
	}
	return len(r.Samples[0].X)
}

func inputDim(r *sim.Result) int {
	if len(r.Samples) == 0 {
		return 0
	}
	return len(r.Samples[0].U)
}
