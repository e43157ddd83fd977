package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/shapes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Particles != 25000 {
		t.Errorf("expected 25000 particles, got %d", cfg.Particles)
	}
	if cfg.Shape != "heart" {
		t.Errorf("expected shape heart, got %s", cfg.Shape)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "morphcloud.yaml")
	data := "particles: 5000\nshape: saturn\ngesture:\n  track_rate: 0.5\n  stale_after: 1s\n"
	g.Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

	cfg, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Particles).To(Equal(5000))
	g.Expect(cfg.Shape).To(Equal("saturn"))
	g.Expect(cfg.Gesture.TrackRate).To(Equal(0.5))
	g.Expect(cfg.Gesture.StaleAfter).To(Equal(time.Second))
	g.Expect(cfg.Gesture.ApplyRate).To(Equal(0.3))
	g.Expect(cfg.FPS).To(Equal(DefaultFPS))
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"zero particles": "particles: 0\n",
		"bad color":      "color: '#nothex'\n",
		"bad rate":       "blend:\n  position_rate: 1.5\n",
		"bad gesture":    "gesture:\n  decay_rate: 0\n",
		"bad yaml":       "particles: [1,2\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(data), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "c.yaml")

	cfg := DefaultConfig()
	cfg.Shape = "christmasTree"
	cfg.Source.Origins = []string{"http://localhost:3000"}
	g.Expect(Save(path, cfg)).To(Succeed())

	got, err := Load(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got).To(Equal(cfg))
}

func TestEngineConfig(t *testing.T) {
	g := NewWithT(t)
	cfg := DefaultConfig()
	cfg.Shape = "pyramid"
	cfg.Color = "gold"

	ec := cfg.Engine()
	g.Expect(ec.Shape).To(Equal(shapes.Heart))
	g.Expect(ec.Color).To(Equal(shapes.Swatches["gold"]))
	g.Expect(ec.Count).To(Equal(cfg.Particles))
	g.Expect(ec.Buffer.FastFrames).To(Equal(5))
	g.Expect(ec.Validate()).To(Succeed())
}

func TestGetPreset(t *testing.T) {
	p := GetPreset("calm")
	if p == nil {
		t.Fatal("expected preset, got nil")
	}
	if p.Blend.PositionRate != 0.2 {
		t.Errorf("expected position rate 0.2, got %f", p.Blend.PositionRate)
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	g := NewWithT(t)
	g.Expect(ListPresets()).To(Equal([]string{"calm", "cinematic", "responsive"}))
}

func TestPresetsAreValid(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := DefaultConfig()
		cfg.Blend.Workers = 3
		if err := cfg.ApplyPreset(name); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
		if cfg.Blend.Workers != 3 {
			t.Errorf("preset %s dropped workers", name)
		}
	}
	if err := DefaultConfig().ApplyPreset("loud"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestWatchReloads(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "c.yaml")
	g.Expect(Save(path, DefaultConfig())).To(Succeed())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) { changes <- c })
	}()

	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)

	bad := filepath.Join(dir, "other.yaml")
	g.Expect(os.WriteFile(bad, []byte("particles: 1\n"), 0644)).To(Succeed())
	g.Expect(os.WriteFile(path, []byte("particles: 0\n"), 0644)).To(Succeed())
	g.Consistently(changes, 400*time.Millisecond).ShouldNot(Receive())

	g.Expect(os.WriteFile(path, []byte("particles: 100\nauto_rotate: 0.5\n"), 0644)).To(Succeed())

	var got *Config
	g.Eventually(changes, 3*time.Second).Should(Receive(&got))
	g.Expect(got.Particles).To(Equal(100))
	g.Expect(got.AutoRotate).To(Equal(0.5))

	cancel()
	g.Eventually(done).Should(Receive(BeNil()))
}
