package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = rune(0x2800)

// Canvas is a braille dot grid. Each cell keeps the color of the nearest
// dot plotted into it.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]shapes.RGB
	depth         [][]float32
}

func NewCanvas(w, h int) *Canvas {
	w, h = max(w, 1), max(h, 1)
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]shapes.RGB, h),
		depth:  make([][]float32, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]shapes.RGB, w)
		c.depth[i] = make([]float32, w)
	}
	c.Clear()
	return c
}

// Dots returns the canvas size in dots.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

// Set lights the dot at (x, y) in dot coordinates.
func (c *Canvas) Set(x, y int) {
	c.Plot(x, y, 0, shapes.RGB{R: 1, G: 1, B: 1})
}

// Plot lights a dot and takes its color if it is nearer than anything
// already in the cell. Larger depth is nearer.
func (c *Canvas) Plot(x, y int, depth float32, col shapes.RGB) {
	if x < 0 || y < 0 {
		return
	}
	cx, cy := x/2, y/4
	if cx >= c.Width || cy >= c.Height {
		return
	}

	c.Grid[cy][cx] |= rune(pixelMap[y%4][x%2])
	if depth >= c.depth[cy][cx] {
		c.depth[cy][cx] = depth
		c.Colors[cy][cx] = col
	}
}

// Lit reports whether the dot at (x, y) is set.
func (c *Canvas) Lit(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	inf := float32(math.Inf(-1))
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Colors[i][j] = shapes.RGB{}
			c.depth[i][j] = inf
		}
	}
}

// Count returns the number of lit dots.
func (c *Canvas) Count() int {
	n := 0
	for _, row := range c.Grid {
		for _, r := range row {
			for bits := int(r - blank); bits != 0; bits &= bits - 1 {
				n++
			}
		}
	}
	return n
}

// String renders the canvas without color.
func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render renders the canvas with each cell in its own color, or every cell
// in mono when mono is set.
func (c *Canvas) Render(mono lipgloss.Color) string {
	styles := make(map[string]lipgloss.Style)
	style := func(hex string) lipgloss.Style {
		s, ok := styles[hex]
		if !ok {
			s = lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
			styles[hex] = s
		}
		return s
	}

	var b strings.Builder
	for i, row := range c.Grid {
		for j, r := range row {
			if r == blank {
				b.WriteRune(r)
				continue
			}
			hex := string(mono)
			if hex == "" {
				hex = c.Colors[i][j].Hex()
			}
			b.WriteString(style(hex).Render(string(r)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
