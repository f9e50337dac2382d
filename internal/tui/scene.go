package tui

import (
	"math"
	"strings"

	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/plants"
)

type point struct{ x, y int }

// Scene is a character canvas that draws one plant state per frame.
type Scene struct {
	plant  string
	width  int
	height int
	canvas [][]rune
	trail  []point
}

func NewScene(plant string, width, height int) *Scene {
	width = max(width, 20)
	height = max(height, 10)
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &Scene{
		plant:  plant,
		width:  width,
		height: height,
		canvas: canvas,
		trail:  make([]point, 0, 40),
	}
}

// Draw renders x and returns the canvas as lines.
func (s *Scene) Draw(x dynamo.State) string {
	s.clear()

	switch s.plant {
	case plants.CartPendulumName:
		s.drawCartPendulum(x)
	case plants.SatelliteName:
		s.drawSatellite(x)
	case plants.VTOLName:
		s.drawVTOL(x)
	default:
		s.drawBars(x)
	}

	lines := make([]string, len(s.canvas))
	for i, row := range s.canvas {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

func (s *Scene) clear() {
	for y := range s.canvas {
		for x := range s.canvas[y] {
			s.canvas[y][x] = ' '
		}
	}
}

func (s *Scene) set(x, y int, c rune) {
	if x >= 0 && x < s.width && y >= 0 && y < s.height {
		s.canvas[y][x] = c
	}
}

// line draws with Bresenham's algorithm.
func (s *Scene) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		s.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func (s *Scene) pushTrail(p point, n int) {
	s.trail = append(s.trail, p)
	if len(s.trail) > n {
		s.trail = s.trail[1:]
	}
	for _, pt := range s.trail {
		s.set(pt.x, pt.y, '.')
	}
}

// drawCartPendulum: θ = 0 is the rod upright above the cart.
func (s *Scene) drawCartPendulum(x dynamo.State) {
	if len(x) < 2 {
		return
	}
	z, theta := x[0], x[1]
	gy := s.height - 3
	cx := s.width/2 + int(math.Round(z*8))

	for i := 2; i < s.width-2; i++ {
		s.set(i, gy+1, '=')
	}

	rod := float64(s.height) / 2
	px := cx + int(math.Round(rod*math.Sin(theta)*2))
	py := gy - 1 - int(math.Round(rod*math.Cos(theta)))
	s.pushTrail(point{px, py}, 20)
	s.line(cx, gy-1, px, py, '|')
	s.set(px, py, 'o')

	for dx := -3; dx <= 3; dx++ {
		s.set(cx+dx, gy, '#')
	}
}

// drawSatellite shows the hub and panel as two spokes about a common axle.
func (s *Scene) drawSatellite(x dynamo.State) {
	if len(x) < 2 {
		return
	}
	theta, phi := x[0], x[1]
	cx, cy := s.width/2, s.height/2
	r := float64(s.height)/2 - 1

	hx := cx + int(math.Round(r*0.6*math.Sin(theta)*2))
	hy := cy - int(math.Round(r*0.6*math.Cos(theta)))
	s.line(cx, cy, hx, hy, '*')
	s.set(hx, hy, 'H')

	px := cx + int(math.Round(r*math.Sin(phi)*2))
	py := cy - int(math.Round(r*math.Cos(phi)))
	s.pushTrail(point{px, py}, 30)
	s.line(cx, cy, px, py, '-')
	s.set(px, py, 'P')

	s.set(cx, cy, '+')
}

func (s *Scene) drawVTOL(x dynamo.State) {
	if len(x) < 3 {
		return
	}
	z, h, theta := x[0], x[1], x[2]

	for i := 2; i < s.width-2; i++ {
		s.set(i, s.height-1, '_')
	}

	dx := s.width/2 + int(math.Round(z*3))
	dy := s.height - 2 - int(math.Round(h*1.5))
	s.pushTrail(point{dx, dy}, 30)

	arm := 4.0
	lx := dx - int(math.Round(arm*math.Cos(theta)))
	ly := dy + int(math.Round(arm*math.Sin(theta)/2))
	rx := dx + int(math.Round(arm*math.Cos(theta)))
	ry := dy - int(math.Round(arm*math.Sin(theta)/2))

	s.line(lx, ly, rx, ry, '-')
	s.set(dx, dy, 'X')
	s.set(lx, ly, 'o')
	s.set(rx, ry, 'o')
}

// drawBars draws one bar per state channel scaled to the largest magnitude.
func (s *Scene) drawBars(x dynamo.State) {
	cy := s.height / 2
	for i := 2; i < s.width-2; i++ {
		s.set(i, cy, '-')
	}
	if len(x) == 0 {
		return
	}

	bw := max((s.width-8)/len(x), 3)
	peak := 1.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}

	for i, v := range x {
		bx := 4 + i*bw
		bh := int((v / peak) * float64(s.height/3))
		if bh > 0 {
			for y := cy - 1; y >= cy-bh && y >= 0; y-- {
				s.set(bx, y, '#')
			}
		} else {
			for y := cy + 1; y <= cy-bh && y < s.height; y++ {
				s.set(bx, y, '#')
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
