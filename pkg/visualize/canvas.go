// ABOUTME: Braille terminal canvas implementing Surface
// ABOUTME: Rasterizes stroked paths into 2x4 dot cells colored with lipgloss
package visualize

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// dot bit for each (x%2, y%4) position inside a braille cell
var brailleBits = [2][4]rune{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

const brailleBase = 0x2800

type point struct{ x, y float64 }

// Canvas is a terminal surface of cols x rows braille cells, giving
// 2*cols x 4*rows addressable dots. Points outside the canvas are clamped
// to its edge.
type Canvas struct {
	cols, rows int
	dots       []rune   // braille bits per cell
	colors     []string // last color stroked into each cell

	color string
	path  []point
}

// NewCanvas creates a canvas of the given size in terminal cells
func NewCanvas(cols, rows int) *Canvas {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Canvas{
		cols:   cols,
		rows:   rows,
		dots:   make([]rune, cols*rows),
		colors: make([]string, cols*rows),
	}
}

// Size returns the canvas size in dots
func (c *Canvas) Size() (float64, float64) {
	return float64(c.cols * 2), float64(c.rows * 4)
}

func (c *Canvas) Clear() {
	clear(c.dots)
	clear(c.colors)
	c.path = c.path[:0]
}

// SetStroke sets the color for the next Stroke. Terminal dots have a
// fixed size, so width is ignored.
func (c *Canvas) SetStroke(color string, width float64) {
	c.color = color
}

func (c *Canvas) BeginPath() {
	c.path = c.path[:0]
}

func (c *Canvas) MoveTo(x, y float64) {
	c.path = append(c.path, point{x, y})
}

func (c *Canvas) LineTo(x, y float64) {
	if len(c.path) == 0 {
		c.MoveTo(x, y)
		return
	}
	c.path = append(c.path, point{x, y})
}

// Stroke rasterizes the current path. A single point plots one dot.
func (c *Canvas) Stroke() {
	if len(c.path) == 1 {
		x, y := c.clampPoint(c.path[0])
		c.set(x, y)
		return
	}
	for i := 1; i < len(c.path); i++ {
		x0, y0 := c.clampPoint(c.path[i-1])
		x1, y1 := c.clampPoint(c.path[i])
		c.line(x0, y0, x1, y1)
	}
}

func (c *Canvas) clampPoint(p point) (int, int) {
	w, h := c.Size()
	x := int(math.Round(p.x))
	y := int(math.Round(p.y))
	return clampInt(x, 0, int(w)-1), clampInt(y, 0, int(h)-1)
}

// line draws with Bresenham's algorithm
func (c *Canvas) line(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := -absInt(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		c.set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (c *Canvas) set(x, y int) {
	cell := (y/4)*c.cols + x/2
	c.dots[cell] |= brailleBits[x%2][y%4]
	c.colors[cell] = c.color
}

// Dot reports whether the dot at (x, y) is set
func (c *Canvas) Dot(x, y int) bool {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return false
	}
	return c.dots[(y/4)*c.cols+x/2]&brailleBits[x%2][y%4] != 0
}

// String renders the canvas as colored braille text, one line per row
func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}

		// Group runs of equal color so each run is styled once
		var run strings.Builder
		runColor := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runColor == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(runColor)).Render(run.String()))
			}
			run.Reset()
		}

		for col := 0; col < c.cols; col++ {
			cell := row*c.cols + col
			color := c.colors[cell]
			if c.dots[cell] == 0 {
				color = ""
			}
			if color != runColor {
				flush()
				runColor = color
			}
			if c.dots[cell] == 0 {
				run.WriteRune(' ')
			} else {
				run.WriteRune(brailleBase + c.dots[cell])
			}
		}
		flush()
	}
	return b.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
