package metrics

import "github.com/san-kum/morphcloud/internal/engine"

// TrackingRatio is the fraction of ticks with at least one hand tracked.
type TrackingRatio struct {
	name     string
	tracking int
	samples  int
	ignored  int
}

func NewTrackingRatio() *TrackingRatio {
	return &TrackingRatio{name: "tracking_ratio"}
}

func (t *TrackingRatio) Name() string {
	return t.name
}

func (t *TrackingRatio) Observe(s engine.Stats) {
	t.samples++
	if s.Gesture.Hands > 0 {
		t.tracking++
	}
	t.ignored = s.Gesture.Ignored
}

func (t *TrackingRatio) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return float64(t.tracking) / float64(t.samples)
}

// Ignored is the mapper's count of dropped malformed results.
func (t *TrackingRatio) Ignored() int {
	return t.ignored
}

func (t *TrackingRatio) Reset() {
	t.tracking = 0
	t.samples = 0
	t.ignored = 0
}

// Standard returns the metrics every command registers.
func Standard() []engine.Metric {
	return []engine.Metric{NewConvergence(10), NewFrameTime(), NewTrackingRatio()}
}
