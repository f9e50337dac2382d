package viz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Field is one labelled line of a summary panel.
type Field struct {
	Label string
	Value string
}

// Summary is the panel printed after a run.
type Summary struct {
	Title   string
	Fields  []Field
	Metrics map[string]float64
	Err     error
}

func (s Summary) Render() string {
	lines := []string{Title.Render(s.Title)}

	status := StatusOK.Render("ok")
	if s.Err != nil {
		status = StatusFailed.Render("halted: " + s.Err.Error())
	}
	lines = append(lines, row("status", status))

	for _, f := range s.Fields {
		lines = append(lines, row(f.Label, f.Value))
	}
	if len(s.Metrics) > 0 {
		lines = append(lines, "", HeaderStyle.Render("metrics"), MetricsTable(s.Metrics))
	}
	return Panel.Render(strings.Join(lines, "\n"))
}

func row(label, value string) string {
	return MetricLabel.Render(fmt.Sprintf("%-12s", label)) + " " + value
}

// MetricsTable lists metrics sorted by name.
func MetricsTable(metrics map[string]float64) string {
	names := make([]string, 0, len(metrics))
	width := 0
	for name := range metrics {
		names = append(names, name)
		width = max(width, len(name))
	}
	slices.Sort(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = MetricLabel.Render(fmt.Sprintf("%-*s", width, name)) + "  " +
			MetricValue.Render(fmt.Sprintf("%.6g", metrics[name]))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Chart plots data with asciigraph, averaging it down to width points.
func Chart(data []float64, caption string, width, height int) string {
	if len(data) == 0 {
		return Subtle.Render(caption + ": no data")
	}
	return asciigraph.Plot(Downsample(data, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ChartMany overlays several equally long series in one chart.
func ChartMany(series [][]float64, caption string, width, height int) string {
	if len(series) == 0 {
		return Subtle.Render(caption + ": no data")
	}
	down := make([][]float64, len(series))
	for i, s := range series {
		down[i] = Downsample(s, width)
	}
	colors := []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Red, asciigraph.Green, asciigraph.Yellow, asciigraph.Blue, asciigraph.Magenta}
	return asciigraph.PlotMany(down,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(colors[:min(len(down), len(colors))]...),
	)
}

// Downsample averages data into at most n buckets.
func Downsample(data []float64, n int) []float64 {
	if n <= 0 || len(data) <= n {
		return slices.Clone(data)
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(data) / n
		hi := (i + 1) * len(data) / n
		sum := 0.0
		for _, v := range data[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}
