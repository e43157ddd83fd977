package particles

import (
	"github.com/chewxy/math32"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Modulate applies the per-shape breathing to expansion. pinch is the
// pinch strength in [0,1]; a firm pinch stills the heartbeat.
func Modulate(s shapes.Shape, expansion, t, pinch float32) float32 {
	switch s {
	case shapes.Fireworks:
		return expansion * (1 + math32.Sin(2*t)*0.3)
	case shapes.Heart:
		damp := 1 - math32.Min(1, 2*clamp01(pinch))
		return expansion * (1 + math32.Sin(8*t)*0.05*damp)
	case shapes.ChristmasTree:
		return expansion * (1 + math32.Sin(1.5*t)*0.08)
	default:
		return expansion
	}
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
