package viz

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// FrameInfo is what the status panel shows about the last frame.
type FrameInfo struct {
	Index      uint64
	Elapsed    float64
	Count      int
	Plotted    int
	Expansion  float32
	Yaw, Pitch float32
	Shape      shapes.Shape
	Color      shapes.RGB
	Fast       bool
	Hands      int
	Status     gesture.Status
	StatusText string
}

// TermRenderer projects frames onto a braille canvas. It satisfies
// engine.Renderer; Resize takes terminal cells.
type TermRenderer struct {
	mu       sync.Mutex
	cam      Camera
	canvas   *Canvas
	mono     lipgloss.Color
	view     string
	info     FrameInfo
	disposed bool
}

var _ engine.Renderer = (*TermRenderer)(nil)

func NewTermRenderer(cols, rows int) *TermRenderer {
	return &TermRenderer{cam: NewCamera(), canvas: NewCanvas(cols, rows)}
}

func (r *TermRenderer) Render(f engine.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.disposed {
		return engine.ErrDisposed
	}

	c := r.canvas
	c.Clear()
	w, h := c.Dots()
	v := r.cam.View(f.Yaw, f.Pitch, w, h)

	plotted := 0
	for i := 0; i < f.Count; i++ {
		p := f.Positions[i*3 : i*3+3]
		sx, sy, depth, ok := v.Project(p[0], p[1], p[2])
		if !ok {
			continue
		}
		col := f.Colors[i*3 : i*3+3]
		c.Plot(sx, sy, depth, shapes.RGB{R: col[0], G: col[1], B: col[2]})
		plotted++
	}

	r.view = c.Render(r.mono)
	r.info = FrameInfo{
		Index:      f.Index,
		Elapsed:    f.Elapsed,
		Count:      f.Count,
		Plotted:    plotted,
		Expansion:  f.Expansion,
		Yaw:        f.Yaw,
		Pitch:      f.Pitch,
		Shape:      f.Shape,
		Color:      f.Color,
		Fast:       f.Fast,
		Hands:      f.Hands,
		Status:     f.Status,
		StatusText: f.StatusText,
	}
	return nil
}

// Resize sets the canvas size in terminal cells. Frames are redrawn on the
// next Render.
func (r *TermRenderer) Resize(cols, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cols, rows = max(cols, 1), max(rows, 1)
	if cols == r.canvas.Width && rows == r.canvas.Height {
		return
	}
	r.canvas = NewCanvas(cols, rows)
}

func (r *TermRenderer) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed = true
	r.view = ""
	return nil
}

// View returns the last rendered canvas.
func (r *TermRenderer) View() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

func (r *TermRenderer) Info() FrameInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

// Size returns the canvas size in cells.
func (r *TermRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canvas.Width, r.canvas.Height
}

// SetMono draws every particle in one color; an empty color restores
// particle colors.
func (r *TermRenderer) SetMono(c lipgloss.Color) {
	r.mu.Lock()
	r.mono = c
	r.mu.Unlock()
}

// Zoom changes the camera zoom by steps; negative zooms out.
func (r *TermRenderer) Zoom(steps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ; steps > 0; steps-- {
		r.cam.ZoomIn()
	}
	for ; steps < 0; steps++ {
		r.cam.ZoomOut()
	}
}

// Snapshot returns a copy of the current canvas.
func (r *TermRenderer) Snapshot() *Canvas {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.canvas
	c := NewCanvas(src.Width, src.Height)
	for i := range src.Grid {
		copy(c.Grid[i], src.Grid[i])
		copy(c.Colors[i], src.Colors[i])
		copy(c.depth[i], src.depth[i])
	}
	return c
}
