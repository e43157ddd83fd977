package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/morphcloud/internal/gesture"
)

// Preset is a named tuning. It covers the live-tunable fields only.
type Preset struct {
	Description string
	AutoRotate  float64
	Blend       BlendConfig
	Gesture     gesture.Tuning
}

var Presets = map[string]*Preset{
	"calm": {
		Description: "slow easing, gentle gestures",
		AutoRotate:  0.08,
		Blend:       BlendConfig{PositionRate: 0.2, ColorRate: 0.15, FastFrames: 8, Jitter: 0.02, MaxExpansion: 4},
		Gesture:     tuned(0.2, 0.15, 0.03, 1.0, 0.6, 500*time.Millisecond),
	},
	"responsive": {
		Description: "stock coefficients",
		AutoRotate:  DefaultAutoRotate,
		Blend:       BlendConfig{PositionRate: 0.5, ColorRate: 0.4, FastFrames: 5, Jitter: 0.04, MaxExpansion: 5},
		Gesture:     gesture.DefaultTuning(),
	},
	"cinematic": {
		Description: "heavy smoothing, wide swings, lots of shimmer",
		AutoRotate:  0.3,
		Blend:       BlendConfig{PositionRate: 0.12, ColorRate: 0.1, FastFrames: 3, Jitter: 0.12, MaxExpansion: 6},
		Gesture:     tuned(0.25, 0.1, 0.02, 2.0, 1.4, 800*time.Millisecond),
	},
}

func tuned(track, apply, decay, yaw, pitch float64, stale time.Duration) gesture.Tuning {
	t := gesture.DefaultTuning()
	t.TrackRate, t.ApplyRate, t.DecayRate = track, apply, decay
	t.YawSensitivity, t.PitchSensitivity = yaw, pitch
	t.StaleAfter = stale
	return t
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites the tunable sections with a preset.
func (c *Config) ApplyPreset(name string) error {
	p := GetPreset(name)
	if p == nil {
		return fmt.Errorf("config: unknown preset %q (have %v)", name, ListPresets())
	}
	workers := c.Blend.Workers
	c.AutoRotate = p.AutoRotate
	c.Blend = p.Blend
	c.Blend.Workers = workers
	c.Gesture = p.Gesture
	return nil
}
