package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/particles"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// MaxStep caps the time one tick may advance, so a stalled window does not
// make the modulations jump.
const MaxStep = 250 * time.Millisecond

// Config fixes an engine at construction. Count never changes afterwards.
type Config struct {
	Count      int
	Shape      shapes.Shape
	Color      shapes.RGB
	FPS        int
	AutoRotate float32 // rad/s while no hands are tracked
	Seed       int64   // 0 picks a time-based seed
	Width      int
	Height     int

	Buffer  particles.Tuning
	Gesture gesture.Tuning
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Count:      25000,
		Shape:      shapes.Default,
		Color:      shapes.DefaultColor,
		FPS:        60,
		AutoRotate: 0.15,
		Width:      1280,
		Height:     720,
		Buffer:     particles.DefaultTuning(),
		Gesture:    gesture.DefaultTuning(),
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Count <= 0:
		return fmt.Errorf("%w: particle count %d", ErrInvalidConfig, c.Count)
	case c.FPS <= 0 || c.FPS > 240:
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.FPS)
	case math32.IsNaN(c.AutoRotate) || math32.IsInf(c.AutoRotate, 0):
		return fmt.Errorf("%w: auto rotate %v", ErrInvalidConfig, c.AutoRotate)
	}
	if err := c.Gesture.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMapper supplies the gesture mapper, for sharing one with a source.
func WithMapper(m *gesture.Mapper) Option {
	return func(e *Engine) { e.mapper = m }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithMetric registers a metric.
func WithMetric(m Metric) Option {
	return func(e *Engine) { e.metrics = append(e.metrics, m) }
}

// OnError registers the callback for fatal errors. It runs after the engine
// has disposed itself, outside the engine lock.
func OnError(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// Engine is the per-frame scheduler. All methods are safe for concurrent
// use.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	buf      *particles.Buffer
	mapper   *gesture.Mapper
	renderer Renderer
	log      *slog.Logger

	observers []Observer
	metrics   []Metric
	onError   func(error)

	frame     uint64
	elapsed   float64
	autoYaw   float32
	yaw       float32
	pitch     float32
	expansion float32
	width     int
	height    int
	disposed  bool

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds an engine: it allocates the particle arrays at random
// positions and pre-generates cfg.Shape as targets.
func New(cfg Config, r Renderer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = NopRenderer{}
	}

	e := &Engine{
		cfg:       cfg,
		renderer:  r,
		log:       slog.Default(),
		expansion: 1,
		width:     max(cfg.Width, 1),
		height:    max(cfg.Height, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.mapper == nil {
		e.mapper = gesture.NewMapper(gesture.WithTuning(cfg.Gesture), gesture.WithLogger(e.log))
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	buf, err := particles.New(cfg.Count, cfg.Shape, cfg.Color, cfg.Buffer, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, fmt.Errorf("engine: allocating particles: %w", err)
	}
	e.buf = buf

	e.log.Info("engine ready", "particles", cfg.Count, "shape", buf.Shape(), "color", buf.Color())
	return e, nil
}

// Mapper returns the gesture mapper the engine reads.
func (e *Engine) Mapper() *gesture.Mapper { return e.mapper }

// Config returns the construction config.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// HandleLandmarks feeds one recognizer result to the mapper. Malformed
// results are dropped without touching state.
func (e *Engine) HandleLandmarks(r gesture.Result) error {
	if e.Disposed() {
		return ErrDisposed
	}
	return e.mapper.Update(r)
}

// Tick runs one frame: gesture snapshot, orientation, modulation,
// interpolation, render. Negative dt counts as zero; dt above MaxStep is
// capped.
func (e *Engine) Tick(dt time.Duration) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}

	if dt < 0 {
		dt = 0
	}
	if dt > MaxStep {
		dt = MaxStep
	}
	secs := float32(dt.Seconds())
	e.elapsed += dt.Seconds()
	e.frame++

	snap := e.mapper.Step()
	if snap.Hands > 0 {
		e.yaw = float32(snap.Applied.Yaw)
		e.autoYaw = e.yaw
	} else {
		e.autoYaw = wrap(e.autoYaw + e.cfg.AutoRotate*secs)
		e.yaw = e.autoYaw
	}
	e.pitch = float32(snap.Applied.Pitch)

	t := float32(e.elapsed)
	shape := e.buf.Shape()
	mod := particles.Modulate(shape, float32(snap.Applied.Expansion), t, float32(snap.PinchStrength))
	e.expansion = e.buf.Tick(t, mod)

	frame := Frame{
		Index:      e.frame,
		Elapsed:    e.elapsed,
		Count:      e.buf.Len(),
		Positions:  e.buf.Positions,
		Colors:     e.buf.Colors,
		Yaw:        e.yaw,
		Pitch:      e.pitch,
		Expansion:  e.expansion,
		Shape:      shape,
		Color:      e.buf.Color(),
		Fast:       e.buf.InFastTransition(),
		Width:      e.width,
		Height:     e.height,
		Hands:      snap.Hands,
		Status:     snap.Status,
		StatusText: gesture.StatusText(snap.Hands),
	}

	start := time.Now()
	err := e.renderer.Render(frame)
	renderTime := time.Since(start)

	if err != nil && errors.Is(err, ErrContextLost) {
		e.log.Error("rendering context lost, disposing engine", "err", err)
		e.disposeLocked()
		hook := e.onError
		e.mu.Unlock()
		if hook != nil {
			hook(err)
		}
		return err
	}
	if err != nil {
		e.log.Warn("render failed", "frame", e.frame, "err", err)
	}

	if len(e.observers) > 0 || len(e.metrics) > 0 {
		stats := Stats{
			Frame:      e.frame,
			Elapsed:    e.elapsed,
			Dt:         dt,
			RenderTime: renderTime,
			Shape:      shape,
			Yaw:        e.yaw,
			Pitch:      e.pitch,
			Expansion:  e.expansion,
			Fast:       frame.Fast,
			Gesture:    snap,
			buf:        e.buf,
		}
		for _, m := range e.metrics {
			m.Observe(stats)
		}
		for _, o := range e.observers {
			o.OnTick(stats)
		}
	}

	e.mu.Unlock()
	return err
}

func wrap(a float32) float32 {
	for a > math32.Pi {
		a -= 2 * math32.Pi
	}
	for a <= -math32.Pi {
		a += 2 * math32.Pi
	}
	return a
}

// Run ticks at cfg.FPS until ctx is done or the engine is disposed. It
// returns nil on cancellation and the fatal error otherwise.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(e.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			err := e.Tick(dt)
			switch {
			case errors.Is(err, ErrDisposed):
				return nil
			case errors.Is(err, ErrContextLost):
				return err
			}
		}
	}
}

// Start runs the loop on its own goroutine.
func (e *Engine) Start(ctx context.Context) error {
	if e.Disposed() {
		return ErrDisposed
	}

	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	if e.done != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.cancel, e.done = cancel, done

	go func() {
		defer close(done)
		defer func() {
			e.loopMu.Lock()
			if e.done == done {
				e.cancel, e.done = nil, nil
			}
			e.loopMu.Unlock()
			cancel()
		}()
		if err := e.Run(ctx); err != nil {
			e.log.Error("engine loop stopped", "err", err)
		}
	}()
	return nil
}

// Stop halts a loop started with Start and waits for it. It is a no-op when
// no loop is running.
func (e *Engine) Stop() {
	e.loopMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a Start loop is active.
func (e *Engine) Running() bool {
	e.loopMu.Lock()
	defer e.loopMu.Unlock()
	return e.done != nil
}

// SwitchShape regenerates targets for s and enters fast transition. On a
// generator failure the previous targets stay in place.
func (e *Engine) SwitchShape(s shapes.Shape) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	if err := e.buf.SwitchShape(s); err != nil {
		e.log.Error("shape switch failed", "shape", s, "err", err)
		return err
	}
	e.log.Debug("shape switched", "shape", e.buf.Shape())
	return nil
}

// SwitchShapeByName parses name and switches. Unknown names switch to the
// default shape. The shape actually used is returned.
func (e *Engine) SwitchShapeByName(name string) (shapes.Shape, error) {
	s, ok := shapes.Parse(name)
	if !ok {
		e.log.Warn("unknown shape, using default", "name", name, "default", s)
	}
	return s, e.SwitchShape(s)
}

// SetColor records the global color and enters fast transition.
func (e *Engine) SetColor(c shapes.RGB) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	applied, err := e.buf.SetColor(c)
	if err != nil {
		return err
	}
	e.log.Debug("color set", "color", c.Clamped(), "applied", applied)
	return nil
}

// SetColorHex parses a hex string or swatch name and sets it.
func (e *Engine) SetColorHex(s string) error {
	c, err := shapes.ParseColor(s)
	if err != nil {
		return err
	}
	return e.SetColor(c)
}

// Resize updates the viewport. Particle state is untouched and repeating a
// size is a no-op.
func (e *Engine) Resize(width, height int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	width, height = max(width, 1), max(height, 1)
	if width == e.width && height == e.height {
		return nil
	}
	e.width, e.height = width, height
	e.renderer.Resize(width, height)
	return nil
}

// Retune swaps interpolation and gesture coefficients on a live engine.
func (e *Engine) Retune(b particles.Tuning, g gesture.Tuning) error {
	if err := e.mapper.Retune(g); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	e.buf.Retune(b)
	e.cfg.Buffer, e.cfg.Gesture = e.buf.Tuning(), g
	e.log.Info("engine retuned")
	return nil
}

// Dispose stops the loop and releases the renderer and the particle arrays.
// It is idempotent. Every later mutating call returns ErrDisposed.
// A dispose from inside the OnError hook returns at once, since the engine
// already disposed itself on the loop goroutine.
func (e *Engine) Dispose() error {
	if e.Disposed() {
		return nil
	}
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return nil
	}
	return e.disposeLocked()
}

func (e *Engine) disposeLocked() error {
	e.disposed = true

	e.loopMu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.loopMu.Unlock()

	err := e.renderer.Dispose()
	e.buf.Release()
	e.log.Info("engine disposed", "frames", e.frame)
	if err != nil {
		return fmt.Errorf("engine: disposing renderer: %w", err)
	}
	return nil
}

// Disposed reports whether Dispose has run.
func (e *Engine) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// State is a copy of the scheduler state.
type State struct {
	Frame      uint64
	Elapsed    float64
	Shape      shapes.Shape
	Color      shapes.RGB
	FastFrames int
	AutoYaw    float32
	Yaw        float32
	Pitch      float32
	Expansion  float32
	Width      int
	Height     int
	Disposed   bool
}

// State returns the current scheduler state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := State{
		Frame:     e.frame,
		Elapsed:   e.elapsed,
		AutoYaw:   e.autoYaw,
		Yaw:       e.yaw,
		Pitch:     e.pitch,
		Expansion: e.expansion,
		Width:     e.width,
		Height:    e.height,
		Disposed:  e.disposed,
		Shape:     e.buf.Shape(),
		Color:     e.buf.Color(),
	}
	if !e.disposed {
		s.FastFrames = e.buf.FastFramesRemaining()
	}
	return s
}

// Metrics returns every registered metric's value by name.
func (e *Engine) Metrics() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// WithBuffer runs fn with the particle buffer under the engine lock. fn
// must not retain the buffer or call back into the engine.
func (e *Engine) WithBuffer(fn func(b *particles.Buffer)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return ErrDisposed
	}
	fn(e.buf)
	return nil
}
