package analysis

import (
	"strings"
)

type Point struct{ X, Y float64 }

// PhasePortrait pairs two recorded channels, typically a position and its
// rate.
type PhasePortrait struct {
	Points []Point
}

// NewPhasePortrait zips xs and ys, truncating to the shorter series.
func NewPhasePortrait(xs, ys []float64) *PhasePortrait {
	n := min(len(xs), len(ys))
	p := &PhasePortrait{Points: make([]Point, n)}
	for i := 0; i < n; i++ {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p
}

// ASCII renders the portrait on a width×height character grid with axes
// drawn where they cross the visible area.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if c := col(0); minX <= 0 && minX+rangeX >= 0 {
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if r := row(0); minY <= 0 && minY+rangeY >= 0 {
		for c := range canvas[r] {
			if canvas[r][c] == '│' {
				canvas[r][c] = '┼'
			} else {
				canvas[r][c] = '─'
			}
		}
	}

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			canvas[r][c] = '•'
		}
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}
