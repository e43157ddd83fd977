package engine

import (
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Frame is everything a renderer needs for one pass. Positions and Colors
// alias the engine's arrays and are only valid during Render.
type Frame struct {
	Index     uint64
	Elapsed   float64
	Count     int
	Positions []float32
	Colors    []float32

	Yaw, Pitch float32
	Expansion  float32
	Shape      shapes.Shape
	Color      shapes.RGB
	Fast       bool

	Width, Height int

	Hands      int
	Status     gesture.Status
	StatusText string
}

// Renderer draws frames. Render returning an error that wraps
// ErrContextLost disposes the engine.
type Renderer interface {
	Render(f Frame) error
	Resize(width, height int)
	Dispose() error
}

// NopRenderer discards frames.
type NopRenderer struct{}

func (NopRenderer) Render(Frame) error { return nil }
func (NopRenderer) Resize(int, int)    {}
func (NopRenderer) Dispose() error     { return nil }

// RenderFunc adapts a function to a Renderer with no-op Resize and Dispose.
type RenderFunc func(Frame) error

func (f RenderFunc) Render(fr Frame) error { return f(fr) }
func (RenderFunc) Resize(int, int)         {}
func (RenderFunc) Dispose() error          { return nil }
