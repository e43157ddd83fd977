// Package gui is the desktop window: a raylib renderer for the engine with
// an optional GPU point path, a HUD and hotkeys.
package gui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/morphcloud/internal/audio"
	"github.com/san-kum/morphcloud/internal/compute"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/san-kum/morphcloud/internal/viz"
)

var (
	ColBg      = rl.NewColor(5, 5, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGood    = rl.NewColor(0, 255, 136, 255)
)

const historyLen = 200

// Options configure the window.
type Options struct {
	Width, Height int
	Title         string
	Fullscreen    bool
	GPU           bool
	HUD           bool
	FPS           int
	Capacity      int // particles the GPU buffers must hold
	Logger        *slog.Logger
	Audio         *audio.Pad
}

// App owns the window and renders engine frames. It satisfies
// engine.Renderer; every call must come from the thread that opened the
// window.
type App struct {
	opt    Options
	log    *slog.Logger
	font   rl.Font
	camera viz.Camera

	backend compute.Backend
	points  *cpuPoints

	eng       *engine.Engine
	paused    bool
	colorIdx  int
	hud       bool
	pinch     float64
	expansion []float64
	disposed  bool
}

var _ engine.Renderer = (*App)(nil)

// NewApp opens the window. Call Close when done.
func NewApp(opt Options) *App {
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Title == "" {
		opt.Title = "morphcloud"
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(opt.Width), int32(opt.Height), opt.Title)
	if opt.Fullscreen {
		rl.ToggleFullscreen()
	}
	rl.SetTargetFPS(int32(opt.FPS))
	rl.SetExitKey(0)

	a := &App{
		opt:       opt,
		log:       opt.Logger,
		font:      rl.GetFontDefault(),
		camera:    viz.NewCamera(),
		hud:       opt.HUD,
		pinch:     0.12,
		colorIdx:  -1,
		expansion: make([]float64, 0, historyLen),
	}
	a.points = &cpuPoints{app: a}
	a.backend = a.points

	if opt.GPU {
		pc := compute.NewPointCloud(opt.Capacity)
		pc.Distance = a.camera.Distance
		if err := pc.Init(); err != nil {
			a.log.Warn("gpu point path unavailable, drawing on the cpu", "err", err)
		} else {
			a.backend = pc
		}
	}
	a.log.Info("window open", "width", opt.Width, "height", opt.Height, "backend", a.backend.Name())
	return a
}

// Close closes the window.
func (a *App) Close() {
	rl.CloseWindow()
}

// Run drives e once per display frame until the window closes, ctx ends or
// the engine stops. A lost context is returned.
func (a *App) Run(ctx context.Context, e *engine.Engine) error {
	a.eng = e
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			return nil
		}
		if quit := a.handleInput(); quit {
			return nil
		}
		if rl.IsWindowResized() {
			e.Resize(int(rl.GetScreenWidth()), int(rl.GetScreenHeight()))
		}

		dt := time.Duration(float64(rl.GetFrameTime()) * float64(time.Second))
		if a.paused {
			dt = 0
		}
		err := e.Tick(dt)
		switch {
		case errors.Is(err, engine.ErrContextLost):
			return err
		case errors.Is(err, engine.ErrDisposed):
			return nil
		}
	}
	return nil
}

func (a *App) handleInput() bool {
	if rl.IsKeyPressed(rl.KeyQ) || rl.IsKeyPressed(rl.KeyEscape) {
		return true
	}

	keys := []int32{rl.KeyOne, rl.KeyTwo, rl.KeyThree, rl.KeyFour, rl.KeyFive, rl.KeySix}
	all := shapes.All()
	for i, k := range keys {
		if i < len(all) && rl.IsKeyPressed(k) {
			a.eng.SwitchShape(all[i])
		}
	}
	if rl.IsKeyPressed(rl.KeyC) {
		names := shapes.SwatchNames()
		a.colorIdx = (a.colorIdx + 1) % len(names)
		a.eng.SetColor(shapes.Swatches[names[a.colorIdx]])
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}
	if rl.IsKeyPressed(rl.KeyH) {
		a.hud = !a.hud
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		a.camera.ZoomIn()
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		a.camera.ZoomOut()
	}

	a.mouseGesture()
	return false
}

// mouseGesture stands in for a tracked hand while the left button is held:
// the cursor steers orientation and the wheel sets the pinch.
func (a *App) mouseGesture() {
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.pinch = max(0.01, min(0.4, a.pinch+float64(wheel)*0.01))
	}
	if !rl.IsMouseButtonDown(rl.MouseLeftButton) {
		return
	}
	m := rl.GetMousePosition()
	w, h := float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight())
	hand := mouseHand(float64(m.X)/w, float64(m.Y)/h, a.pinch)
	if err := a.eng.HandleLandmarks(hand); err != nil {
		a.log.Debug("mouse gesture rejected", "err", err)
	}
}

// Render draws one frame between BeginDrawing and EndDrawing.
func (a *App) Render(f engine.Frame) error {
	if a.disposed {
		return engine.ErrDisposed
	}

	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	aspect := float32(f.Width) / float32(max(f.Height, 1))
	if err := a.backend.Upload(f.Positions, f.Colors, f.Count); err != nil {
		rl.EndDrawing()
		return err
	}
	a.points.frame = f
	a.backend.Draw(a.camera.Matrix(f.Yaw, f.Pitch, aspect), f.Count)
	if err := a.backend.Check(); err != nil {
		rl.EndDrawing()
		return err
	}

	a.expansion = append(a.expansion, float64(f.Expansion))
	if len(a.expansion) > historyLen {
		a.expansion = a.expansion[1:]
	}
	if a.hud {
		a.drawHUD(f)
	}

	rl.EndDrawing()
	return nil
}

// Resize is applied by raylib itself; the projection reads the frame size.
func (a *App) Resize(width, height int) {
	a.log.Debug("viewport resized", "width", width, "height", height)
}

// Dispose frees GPU buffers. The window stays open until Close.
func (a *App) Dispose() error {
	if a.disposed {
		return nil
	}
	a.disposed = true
	a.backend.Release()
	return nil
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) drawHUD(f engine.Frame) {
	w, h := int(rl.GetScreenWidth()), int(rl.GetScreenHeight())

	a.drawText("morphcloud", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", f.Shape), 190, 34, 16, ColText)
	rl.DrawRectangle(30, 64, 14, 14, toColor(f.Color.R, f.Color.G, f.Color.B))
	a.drawText(f.Color.Hex(), 52, 64, 14, ColText)

	status := f.StatusText
	col := ColTextDim
	if f.Hands > 0 {
		col = ColGood
	}
	if a.paused {
		status, col = "PAUSED", ColAccent
	}
	a.drawText(status, w-260, 30, 16, col)
	a.drawText(fmt.Sprintf("expansion %.2f  yaw %+.2f  pitch %+.2f", f.Expansion, f.Yaw, f.Pitch), w-360, 54, 14, ColText)
	if f.Fast {
		a.drawText("morphing", w-260, 76, 14, ColAccent)
	}

	a.drawGraph(30, h-140, 400, 60)

	if a.opt.Audio != nil {
		lv := a.opt.Audio.Levels()
		bars := min(20, int(lv.RMS*80))
		a.drawText(fmt.Sprintf("PAD [%-20s] %4.0f Hz", repeat('|', bars), lv.Brightness), 30, h-70, 14, ColAccent)
	}

	a.drawText(fmt.Sprintf("%d FPS  %d particles  %s", rl.GetFPS(), f.Count, a.backend.Name()), 30, h-40, 14, ColTextDim)
	a.drawText("[1-6] SHAPE  [C] COLOR  [SPACE] PAUSE  [+/-] ZOOM  [H] HUD  [MOUSE] HAND  [Q] QUIT", w-760, h-40, 14, ColTextDim)
}

func repeat(r rune, n int) string {
	out := make([]rune, max(n, 0))
	for i := range out {
		out[i] = r
	}
	return string(out)
}
