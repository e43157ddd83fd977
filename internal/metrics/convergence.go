package metrics

import "github.com/san-kum/morphcloud/internal/engine"

// Convergence tracks the mean distance of particles from their expanded
// targets. Sampling walks every particle, so it only runs every few ticks.
type Convergence struct {
	name    string
	every   uint64
	last    float64
	peak    float64
	samples int
}

func NewConvergence(every int) *Convergence {
	if every < 1 {
		every = 1
	}
	return &Convergence{
		name:  "convergence_error",
		every: uint64(every),
	}
}

func (c *Convergence) Name() string {
	return c.name
}

func (c *Convergence) Observe(s engine.Stats) {
	if s.Frame%c.every != 0 {
		return
	}
	c.last = s.MeanError()
	if c.last > c.peak {
		c.peak = c.last
	}
	c.samples++
}

// Value is the most recent sample.
func (c *Convergence) Value() float64 {
	return c.last
}

// Peak is the largest sample since Reset.
func (c *Convergence) Peak() float64 {
	return c.peak
}

func (c *Convergence) Reset() {
	c.last, c.peak = 0, 0
	c.samples = 0
}
