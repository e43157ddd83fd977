package metrics

import (
	"time"

	"github.com/san-kum/morphcloud/internal/engine"
)

// FrameTime is the mean tick interval in milliseconds.
type FrameTime struct {
	name   string
	total  time.Duration
	render time.Duration
	worst  time.Duration
	ticks  int
}

func NewFrameTime() *FrameTime {
	return &FrameTime{name: "frame_ms"}
}

func (f *FrameTime) Name() string {
	return f.name
}

func (f *FrameTime) Observe(s engine.Stats) {
	f.ticks++
	f.total += s.Dt
	f.render += s.RenderTime
	if s.Dt > f.worst {
		f.worst = s.Dt
	}
}

func (f *FrameTime) Value() float64 {
	if f.ticks == 0 {
		return 0
	}
	return ms(f.total) / float64(f.ticks)
}

// RenderMillis is the mean time spent inside the renderer.
func (f *FrameTime) RenderMillis() float64 {
	if f.ticks == 0 {
		return 0
	}
	return ms(f.render) / float64(f.ticks)
}

// WorstMillis is the longest tick interval seen.
func (f *FrameTime) WorstMillis() float64 {
	return ms(f.worst)
}

// FPS is the rate implied by the mean interval.
func (f *FrameTime) FPS() float64 {
	v := f.Value()
	if v == 0 {
		return 0
	}
	return 1000 / v
}

func (f *FrameTime) Reset() {
	f.total, f.render, f.worst = 0, 0, 0
	f.ticks = 0
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
