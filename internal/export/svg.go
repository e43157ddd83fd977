// Package export writes SVG images of the cloud and of telemetry series.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/viz"
)

const background = "#0a0a0a"

// CanvasToSVG converts a braille canvas to SVG, one circle per lit dot in
// its cell color.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	dw, dh := canvas.Dots()
	width, height := float64(dw)*scale, float64(dh)*scale

	var sb strings.Builder
	header(&sb, width, height)
	r := scale * 0.4
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			col := canvas.Colors[y/4][x/2].Hex()
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\" fill=\"%s\"/>\n",
				float64(x)*scale+scale/2, float64(y)*scale+scale/2, r, col)
		}
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

// CloudOptions control CloudToSVG.
type CloudOptions struct {
	Width, Height int
	Camera        viz.Camera
	MaxPoints     int     // 0 draws every particle
	Radius        float64 // at the origin
}

func DefaultCloudOptions() CloudOptions {
	return CloudOptions{Width: 800, Height: 800, Camera: viz.NewCamera(), MaxPoints: 20000, Radius: 1.2}
}

type dot struct {
	x, y  int
	depth float32
	color string
}

// CloudToSVG projects a frame with the frame's orientation and draws it back
// to front. Nearer particles are drawn larger.
func CloudToSVG(f engine.Frame, opt CloudOptions) string {
	if opt.Width <= 0 || opt.Height <= 0 {
		opt.Width, opt.Height = 800, 800
	}
	v := opt.Camera.View(f.Yaw, f.Pitch, opt.Width, opt.Height)

	stride := 1
	if opt.MaxPoints > 0 && f.Count > opt.MaxPoints {
		stride = (f.Count + opt.MaxPoints - 1) / opt.MaxPoints
	}

	dots := make([]dot, 0, f.Count/stride+1)
	for i := 0; i < f.Count; i += stride {
		sx, sy, depth, ok := v.Project(f.Positions[i*3], f.Positions[i*3+1], f.Positions[i*3+2])
		if !ok {
			continue
		}
		c := f.Colors[i*3 : i*3+3]
		dots = append(dots, dot{sx, sy, depth, hex(c[0], c[1], c[2])})
	}
	sort.SliceStable(dots, func(i, j int) bool { return dots[i].depth < dots[j].depth })

	var sb strings.Builder
	header(&sb, float64(opt.Width), float64(opt.Height))
	fmt.Fprintf(&sb, "<!-- %s, %d particles, expansion %.2f -->\n", f.Shape, f.Count, f.Expansion)
	dist := float64(opt.Camera.Distance)
	for _, d := range dots {
		r := opt.Radius * dist / max(dist-float64(d.depth), 1)
		fmt.Fprintf(&sb, "<circle cx=\"%d\" cy=\"%d\" r=\"%.2f\" fill=\"%s\"/>\n", d.x, d.y, r, d.color)
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}

// SeriesToSVG draws values against times as a polyline.
func SeriesToSVG(times, values []float64, width, height int, stroke string) string {
	n := min(len(times), len(values))
	if n < 2 {
		return ""
	}

	minX, maxX := times[0], times[n-1]
	minY, maxY := values[0], values[0]
	for _, v := range values[:n] {
		minY, maxY = min(minY, v), max(maxY, v)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, float64(width), float64(height))
	fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", stroke)
	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}

func header(sb *strings.Builder, w, h float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, w, h, w, h, background)
}

func hex(r, g, b float32) string {
	to := func(v float32) int { return int(max(0, min(1, v))*255 + 0.5) }
	return fmt.Sprintf("#%02x%02x%02x", to(r), to(g), to(b))
}
