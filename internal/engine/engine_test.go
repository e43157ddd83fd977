package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/particles"
	"github.com/san-kum/morphcloud/internal/shapes"
)

type recorder struct {
	mu       sync.Mutex
	frames   []Frame
	resizes  int
	disposes int
	fail     error
}

func (r *recorder) Render(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Positions = append([]float32(nil), f.Positions...)
	f.Colors = nil
	r.frames = append(r.frames, f)
	return r.fail
}

func (r *recorder) Resize(int, int) {
	r.mu.Lock()
	r.resizes++
	r.mu.Unlock()
}

func (r *recorder) Dispose() error {
	r.mu.Lock()
	r.disposes++
	r.mu.Unlock()
	return nil
}

func (r *recorder) last() Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Count = 2000
	cfg.Seed = 7
	return cfg
}

func newTestEngine(t *testing.T, r Renderer, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	e, err := New(testConfig(), r, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Dispose() })
	return e
}

func hand(wx, wy float64) gesture.Hand {
	h := make(gesture.Hand, gesture.LandmarkCount)
	for i := range h {
		h[i] = gesture.Landmark{X: wx, Y: wy - 0.2}
	}
	h[gesture.Wrist] = gesture.Landmark{X: wx, Y: wy}
	h[gesture.MiddleTip] = gesture.Landmark{X: wx, Y: wy - 0.35}
	return h
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero particles", func(c *Config) { c.Count = 0 }},
		{"negative fps", func(c *Config) { c.FPS = -1 }},
		{"huge fps", func(c *Config) { c.FPS = 1000 }},
		{"bad gesture tuning", func(c *Config) { c.Gesture.ApplyRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if _, err := New(cfg, nil, WithLogger(quietLogger())); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestTickRendersFullFrame(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{}
	e := newTestEngine(t, r)

	g.Expect(e.Tick(16 * time.Millisecond)).To(Succeed())
	f := r.last()
	g.Expect(f.Index).To(Equal(uint64(1)))
	g.Expect(f.Count).To(Equal(2000))
	g.Expect(f.Positions).To(HaveLen(6000))
	g.Expect(f.Shape).To(Equal(shapes.Heart))
	g.Expect(f.StatusText).To(Equal("No hands detected"))
	g.Expect(f.Width).To(Equal(1280))
	g.Expect(f.Expansion).To(BeNumerically(">", 0))
}

func TestAutonomousRotationWithoutHands(t *testing.T) {
	g := NewWithT(t)
	e := newTestEngine(t, &recorder{})

	for i := 0; i < 10; i++ {
		g.Expect(e.Tick(100 * time.Millisecond)).To(Succeed())
	}
	st := e.State()
	g.Expect(st.AutoYaw).To(BeNumerically("~", 0.15, 1e-4))
	g.Expect(st.Yaw).To(Equal(st.AutoYaw))
	g.Expect(st.Elapsed).To(BeNumerically("~", 1.0, 1e-9))
}

func TestTickClampsStep(t *testing.T) {
	g := NewWithT(t)
	e := newTestEngine(t, &recorder{})

	g.Expect(e.Tick(time.Hour)).To(Succeed())
	g.Expect(e.Tick(-time.Second)).To(Succeed())
	g.Expect(e.State().Elapsed).To(BeNumerically("~", MaxStep.Seconds(), 1e-9))
}

func TestHandsDriveOrientation(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{}
	e := newTestEngine(t, r)

	left, right := hand(0.3, 0.6), hand(0.7, 0.4)
	for i := 0; i < 30; i++ {
		g.Expect(e.HandleLandmarks(gesture.Result{Hands: []gesture.Hand{left, right}})).To(Succeed())
		g.Expect(e.Tick(16 * time.Millisecond)).To(Succeed())
	}

	snap := e.Mapper().Snapshot()
	st := e.State()
	g.Expect(snap.Hands).To(Equal(2))
	g.Expect(st.Yaw).To(BeNumerically("~", snap.Applied.Yaw, 1e-6))
	g.Expect(st.Pitch).To(BeNumerically("~", snap.Applied.Pitch, 1e-6))
	g.Expect(st.Yaw).To(BeNumerically("<", 0))
	g.Expect(r.last().StatusText).To(Equal("Tracking 2 hands"))
}

func TestSwitchShapeEntersFastTransition(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{}
	e := newTestEngine(t, r)

	g.Expect(e.SwitchShape(shapes.Saturn)).To(Succeed())
	g.Expect(e.State().FastFrames).To(Equal(5))

	for i := 0; i < 5; i++ {
		g.Expect(e.Tick(16 * time.Millisecond)).To(Succeed())
		g.Expect(r.last().Fast).To(Equal(i < 4), "frame %d", i)
	}
	g.Expect(e.State().FastFrames).To(Equal(0))
	g.Expect(e.State().Shape).To(Equal(shapes.Saturn))
}

func TestSwitchShapeByNameFallsBack(t *testing.T) {
	g := NewWithT(t)
	e := newTestEngine(t, &recorder{})

	s, err := e.SwitchShapeByName("fireworks")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s).To(Equal(shapes.Fireworks))

	s, err = e.SwitchShapeByName("dodecahedron")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s).To(Equal(shapes.Heart))
	g.Expect(e.State().Shape).To(Equal(shapes.Heart))
}

func TestSetColorHex(t *testing.T) {
	g := NewWithT(t)
	e := newTestEngine(t, &recorder{})

	g.Expect(e.SetColorHex("not-a-color")).To(HaveOccurred())
	g.Expect(e.State().Color).To(Equal(shapes.DefaultColor))

	g.Expect(e.SetColorHex("#00ff00")).To(Succeed())
	g.Expect(e.State().Color).To(Equal(shapes.RGB{G: 1}))
	g.Expect(e.State().FastFrames).To(Equal(5))
}

func TestResizeIsIdempotent(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{}
	e := newTestEngine(t, r)
	g.Expect(e.Tick(0)).To(Succeed())
	before := r.last().Positions

	g.Expect(e.Resize(800, 600)).To(Succeed())
	g.Expect(e.Resize(800, 600)).To(Succeed())
	g.Expect(e.Resize(0, -4)).To(Succeed())
	g.Expect(r.resizes).To(Equal(2))

	st := e.State()
	g.Expect(st.Width).To(Equal(1))
	g.Expect(st.Height).To(Equal(1))

	var after []float32
	g.Expect(e.WithBuffer(func(b *particles.Buffer) { after = append(after, b.Positions...) })).To(Succeed())
	g.Expect(after).To(Equal(before))
}

func TestContextLossDisposesEngine(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{fail: fmt.Errorf("gl: %w", ErrContextLost)}

	var hooked []error
	e := newTestEngine(t, r, OnError(func(err error) { hooked = append(hooked, err) }))

	err := e.Tick(16 * time.Millisecond)
	g.Expect(err).To(MatchError(ErrContextLost))
	g.Expect(hooked).To(HaveLen(1))
	g.Expect(e.Disposed()).To(BeTrue())
	g.Expect(r.disposes).To(Equal(1))

	g.Expect(e.Tick(time.Millisecond)).To(MatchError(ErrDisposed))
	g.Expect(e.SwitchShape(shapes.Flower)).To(MatchError(ErrDisposed))
	g.Expect(e.SetColor(shapes.DefaultColor)).To(MatchError(ErrDisposed))
	g.Expect(e.Resize(10, 10)).To(MatchError(ErrDisposed))
	g.Expect(e.HandleLandmarks(gesture.Result{})).To(MatchError(ErrDisposed))

	g.Expect(e.Dispose()).To(Succeed())
	g.Expect(r.disposes).To(Equal(1))
	g.Expect(hooked).To(HaveLen(1))
}

func TestRenderErrorIsNotFatal(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{fail: errors.New("dropped frame")}
	e := newTestEngine(t, r)

	g.Expect(e.Tick(16 * time.Millisecond)).To(MatchError("dropped frame"))
	g.Expect(e.Disposed()).To(BeFalse())

	r.mu.Lock()
	r.fail = nil
	r.mu.Unlock()
	g.Expect(e.Tick(16 * time.Millisecond)).To(Succeed())
}

func TestDisposeIsIdempotent(t *testing.T) {
	g := NewWithT(t)
	r := &recorder{}
	e := newTestEngine(t, r)

	g.Expect(e.Dispose()).To(Succeed())
	g.Expect(e.Dispose()).To(Succeed())
	g.Expect(r.disposes).To(Equal(1))
	g.Expect(e.State().Disposed).To(BeTrue())
	g.Expect(e.Start(t.Context())).To(MatchError(ErrDisposed))
}

type countMetric struct{ n float64 }

func (c *countMetric) Name() string   { return "ticks" }
func (c *countMetric) Observe(Stats)  { c.n++ }
func (c *countMetric) Value() float64 { return c.n }
func (c *countMetric) Reset()         { c.n = 0 }

func TestObserversAndMetrics(t *testing.T) {
	g := NewWithT(t)
	var errs []float64
	e := newTestEngine(t, &recorder{},
		WithMetric(&countMetric{}),
		WithObserver(ObserverFunc(func(s Stats) { errs = append(errs, s.MeanError()) })),
	)

	for i := 0; i < 8; i++ {
		g.Expect(e.Tick(16 * time.Millisecond)).To(Succeed())
	}
	g.Expect(e.Metrics()).To(HaveKeyWithValue("ticks", 8.0))
	g.Expect(errs).To(HaveLen(8))
	// converging from the random initial cloud
	g.Expect(errs[7]).To(BeNumerically("<", errs[0]))
}

func TestRetune(t *testing.T) {
	g := NewWithT(t)
	e := newTestEngine(t, &recorder{})

	cfg := e.Config()
	cfg.Buffer.PositionRate = 0.9
	cfg.Gesture.TrackRate = 0.5
	g.Expect(e.Retune(cfg.Buffer, cfg.Gesture)).To(Succeed())
	g.Expect(e.Config().Buffer.PositionRate).To(BeNumerically("~", 0.9, 1e-6))
	g.Expect(e.Mapper().Tuning().TrackRate).To(Equal(0.5))

	cfg.Gesture.DecayRate = -1
	g.Expect(e.Retune(cfg.Buffer, cfg.Gesture)).To(HaveOccurred())
}
