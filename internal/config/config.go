package config

import (
	"fmt"
	"os"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/particles"
	"github.com/san-kum/morphcloud/internal/shapes"
	"gopkg.in/yaml.v3"
)

const (
	DefaultParticles  = 25000
	DefaultFPS        = 60
	DefaultAutoRotate = 0.15
	DefaultWidth      = 1280
	DefaultHeight     = 720
	DefaultListen     = "127.0.0.1:8787"
	DefaultWSPath     = "/ws"
	DefaultDataDir    = "sessions"
)

type Config struct {
	Particles  int            `yaml:"particles"`
	Shape      string         `yaml:"shape"`
	Color      string         `yaml:"color"`
	FPS        int            `yaml:"fps"`
	AutoRotate float64        `yaml:"auto_rotate"`
	Seed       int64          `yaml:"seed"`
	Theme      string         `yaml:"theme"`
	Window     WindowConfig   `yaml:"window"`
	Blend      BlendConfig    `yaml:"blend"`
	Gesture    gesture.Tuning `yaml:"gesture"`
	Source     SourceConfig   `yaml:"source"`
	Audio      AudioConfig    `yaml:"audio"`
	Record     RecordConfig   `yaml:"record"`
}

type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	GPU        bool `yaml:"gpu"`
	HUD        bool `yaml:"hud"`
}

type BlendConfig struct {
	PositionRate float64 `yaml:"position_rate"`
	ColorRate    float64 `yaml:"color_rate"`
	FastFrames   int     `yaml:"fast_frames"`
	Jitter       float64 `yaml:"jitter"`
	MaxExpansion float64 `yaml:"max_expansion"`
	Workers      int     `yaml:"workers"`
}

type SourceConfig struct {
	Listen  string   `yaml:"listen"`
	Path    string   `yaml:"path"`
	Origins []string `yaml:"origins"`
	Replay  string   `yaml:"replay"`
}

type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

type RecordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

func DefaultConfig() *Config {
	bt := particles.DefaultTuning()
	return &Config{
		Particles:  DefaultParticles,
		Shape:      shapes.Default.String(),
		Color:      shapes.DefaultColor.Hex(),
		FPS:        DefaultFPS,
		AutoRotate: DefaultAutoRotate,
		Theme:      "neon",
		Window: WindowConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
			GPU:    true,
			HUD:    true,
		},
		Blend: BlendConfig{
			PositionRate: float64(bt.PositionRate),
			ColorRate:    float64(bt.ColorRate),
			FastFrames:   bt.FastFrames,
			Jitter:       float64(bt.Jitter),
			MaxExpansion: float64(bt.MaxExpansion),
		},
		Gesture: gesture.DefaultTuning(),
		Source: SourceConfig{
			Listen: DefaultListen,
			Path:   DefaultWSPath,
		},
		Audio:  AudioConfig{Volume: 0.3},
		Record: RecordConfig{Dir: DefaultDataDir},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the file-level fields. Shape names are not checked here;
// unknown names fall back to the default shape at startup.
func (c *Config) Validate() error {
	if c.Particles <= 0 {
		return fmt.Errorf("config: particles must be positive, got %d", c.Particles)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("config: fps must be in [1,240], got %d", c.FPS)
	}
	if _, err := shapes.ParseColor(c.Color); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Blend.PositionRate <= 0 || c.Blend.PositionRate > 1 {
		return fmt.Errorf("config: blend.position_rate must be in (0,1], got %v", c.Blend.PositionRate)
	}
	if c.Blend.ColorRate <= 0 || c.Blend.ColorRate > 1 {
		return fmt.Errorf("config: blend.color_rate must be in (0,1], got %v", c.Blend.ColorRate)
	}
	if c.Blend.MaxExpansion <= 0 {
		return fmt.Errorf("config: blend.max_expansion must be positive, got %v", c.Blend.MaxExpansion)
	}
	if err := c.Gesture.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("config: audio.volume must be in [0,1], got %v", c.Audio.Volume)
	}
	return nil
}

// BufferTuning converts the blend section.
func (c *Config) BufferTuning() particles.Tuning {
	return particles.Tuning{
		PositionRate: float32(c.Blend.PositionRate),
		ColorRate:    float32(c.Blend.ColorRate),
		FastFrames:   c.Blend.FastFrames,
		Jitter:       float32(c.Blend.Jitter),
		MaxExpansion: float32(c.Blend.MaxExpansion),
		Workers:      c.Blend.Workers,
	}
}

// Engine builds the engine configuration. An unparseable color falls back
// to the default.
func (c *Config) Engine() engine.Config {
	color, err := shapes.ParseColor(c.Color)
	if err != nil {
		color = shapes.DefaultColor
	}
	return engine.Config{
		Count:      c.Particles,
		Shape:      shapes.ParseOrDefault(c.Shape),
		Color:      color,
		FPS:        c.FPS,
		AutoRotate: float32(c.AutoRotate),
		Seed:       c.Seed,
		Width:      c.Window.Width,
		Height:     c.Window.Height,
		Buffer:     c.BufferTuning(),
		Gesture:    c.Gesture,
	}
}
