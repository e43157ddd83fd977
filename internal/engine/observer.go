package engine

import (
	"time"

	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/particles"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Stats describes one completed tick. Observers run under the engine lock
// and must not call back into the engine.
type Stats struct {
	Frame      uint64
	Elapsed    float64
	Dt         time.Duration
	RenderTime time.Duration
	Shape      shapes.Shape
	Yaw, Pitch float32
	Expansion  float32
	Fast       bool
	Gesture    gesture.Snapshot

	buf *particles.Buffer
}

// MeanError is the mean distance from current positions to their expanded
// targets. It walks every particle.
func (s Stats) MeanError() float64 {
	if s.buf == nil {
		return 0
	}
	return s.buf.MeanError(s.Expansion)
}

// Observer is notified after every tick.
type Observer interface {
	OnTick(s Stats)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(Stats)

func (f ObserverFunc) OnTick(s Stats) { f(s) }

// Metric accumulates a scalar over ticks.
type Metric interface {
	Name() string
	Observe(s Stats)
	Value() float64
	Reset()
}
