package particles

import "github.com/san-kum/morphcloud/internal/shapes"

// ColorController resolves the active palette into per-particle colors:
// the global color for plain shapes, the tag table for tagged ones.
type ColorController struct {
	global shapes.RGB
}

// Global returns the recorded global color.
func (c ColorController) Global() shapes.RGB { return c.global }

// Resolve returns the color for one particle of shape s carrying tag.
func (c ColorController) Resolve(s shapes.Shape, tag shapes.ColorTag) shapes.RGB {
	if s.Tagged() && tag != shapes.TagNone {
		return shapes.TagColor(tag)
	}
	return c.global
}

func (c ColorController) fill(dst []float32, s shapes.Shape, tags []shapes.ColorTag) {
	if !s.Tagged() {
		for i := 0; i+2 < len(dst); i += 3 {
			dst[i], dst[i+1], dst[i+2] = c.global.R, c.global.G, c.global.B
		}
		return
	}
	for i, tag := range tags {
		rgb := c.Resolve(s, tag)
		dst[3*i], dst[3*i+1], dst[3*i+2] = rgb.R, rgb.G, rgb.B
	}
}

// SetColor records c as the global color. Plain shapes take it on both the
// current and target arrays at once; tagged shapes keep their palette until
// the next switch to a plain shape. Either way the buffer enters fast
// transition. It reports whether particle colors changed.
func (b *Buffer) SetColor(c shapes.RGB) (bool, error) {
	if b.released {
		return false, ErrReleased
	}
	b.color.global = c.Clamped()
	b.fastFrames = b.tuning.FastFrames

	if b.shape.Tagged() {
		return false, nil
	}
	b.color.fill(b.targetColors, b.shape, b.tags)
	copy(b.Colors, b.targetColors)
	return true, nil
}
