package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/morphcloud/internal/automation"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
)

// cpuPoints draws through raylib's batch. Orientation is applied on the CPU
// with the same camera the terminal renderer uses.
type cpuPoints struct {
	app   *App
	frame engine.Frame
}

func (p *cpuPoints) Name() string                        { return "cpu" }
func (p *cpuPoints) Upload(_, _ []float32, _ int) error { return nil }
func (p *cpuPoints) Check() error                        { return nil }
func (p *cpuPoints) Release()                            {}

func (p *cpuPoints) Draw(_ [16]float32, n int) {
	f := p.frame
	cam := p.app.camera
	v := cam.View(f.Yaw, f.Pitch, max(f.Width, 1), max(f.Height, 1))

	rc := rl.NewCamera3D(
		rl.NewVector3(0, 0, cam.Distance),
		rl.NewVector3(0, 0, 0),
		rl.NewVector3(0, 1, 0),
		cam.FOV*rl.Rad2deg,
		rl.CameraPerspective,
	)
	rl.BeginMode3D(rc)
	for i := 0; i < n; i++ {
		x, y, z := v.Rotate(f.Positions[i*3]*cam.Zoom, f.Positions[i*3+1]*cam.Zoom, f.Positions[i*3+2]*cam.Zoom)
		c := f.Colors[i*3 : i*3+3]
		rl.DrawPoint3D(rl.NewVector3(x, y, z), toColor(c[0], c[1], c[2]))
	}
	rl.EndMode3D()
}

func toColor(r, g, b float32) rl.Color {
	to := func(v float32) uint8 { return uint8(max(0, min(1, v))*255 + 0.5) }
	return rl.NewColor(to(r), to(g), to(b), 255)
}

// mouseHand builds one hand at the normalized cursor position. Horizontal
// offset from the center turns the palm and vertical offset bends it.
func mouseHand(mx, my, pinch float64) gesture.Result {
	facing := (mx - 0.5) * 1.2
	tilt := (0.5 - my) * 1.2
	return gesture.Result{Hands: []gesture.Hand{automation.PoseHand(mx, my, facing, tilt, pinch)}}
}

func (a *App) drawGraph(x, y, width, height int) {
	if len(a.expansion) < 2 {
		return
	}

	lo, hi := a.expansion[0], a.expansion[0]
	for _, v := range a.expansion {
		lo, hi = min(lo, v), max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	points := make([]rl.Vector2, len(a.expansion))
	for i, val := range a.expansion {
		px := float32(x) + float32(i)/float32(historyLen)*float32(width)
		py := float32(y+height) - float32((val-lo)/(hi-lo))*float32(height)
		points[i] = rl.NewVector2(px, py)
	}
	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("expansion %.2f", a.expansion[len(a.expansion)-1]), x+width+10, y+height-10, 14, ColText)
}
