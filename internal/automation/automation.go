// Package automation scripts the cloud: YAML scenarios that switch shapes,
// change colors and play synthetic gestures, plus particle-count sweeps.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/san-kum/morphcloud/internal/source"
	"gopkg.in/yaml.v3"
)

// ErrEmptyScenario is returned for a scenario without steps.
var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted sequence of steps.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Loop        bool   `yaml:"loop"`
	Steps       []Step `yaml:"steps"`
}

// Step holds one state for Hold. Empty Shape or Color leave the current one.
type Step struct {
	Shape   string        `yaml:"shape"`
	Color   string        `yaml:"color"`
	Hold    time.Duration `yaml:"hold"`
	Gesture *Gesture      `yaml:"gesture"`
}

// LoadScenario loads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("automation: parsing %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return ErrEmptyScenario
	}
	for i, st := range sc.Steps {
		if st.Shape != "" {
			if _, ok := shapes.Parse(st.Shape); !ok {
				return fmt.Errorf("automation: step %d: unknown shape %q", i+1, st.Shape)
			}
		}
		if st.Color != "" {
			if _, err := shapes.ParseColor(st.Color); err != nil {
				return fmt.Errorf("automation: step %d: %w", i+1, err)
			}
		}
		if st.Hold < 0 {
			return fmt.Errorf("automation: step %d: negative hold", i+1)
		}
		if st.Gesture != nil {
			if err := st.Gesture.Validate(); err != nil {
				return fmt.Errorf("automation: step %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// Duration is the length of one pass.
func (sc *Scenario) Duration() time.Duration {
	var d time.Duration
	for _, st := range sc.Steps {
		d += st.Hold
	}
	return d
}

// Player runs a scenario against a sink. It satisfies source.Source.
type Player struct {
	sc   *Scenario
	rate time.Duration
	log  *slog.Logger
	now  func() time.Time
}

type PlayerOption func(*Player)

// WithFrameRate sets how often synthetic gestures are sent.
func WithFrameRate(hz int) PlayerOption {
	return func(p *Player) {
		if hz > 0 {
			p.rate = time.Second / time.Duration(hz)
		}
	}
}

func WithLogger(l *slog.Logger) PlayerOption {
	return func(p *Player) { p.log = l }
}

func NewPlayer(sc *Scenario, opts ...PlayerOption) *Player {
	p := &Player{sc: sc, rate: time.Second / 30, log: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ source.Source = (*Player)(nil)

// Run plays every step in order and returns nil when done or when ctx ends.
func (p *Player) Run(ctx context.Context, sink source.Sink) error {
	if err := p.sc.Validate(); err != nil {
		return err
	}
	for {
		for i, st := range p.sc.Steps {
			p.log.Info("scenario step", "scenario", p.sc.Name, "step", i+1, "of", len(p.sc.Steps), "shape", st.Shape, "color", st.Color)
			if err := p.apply(st, sink); err != nil {
				return fmt.Errorf("automation: step %d: %w", i+1, err)
			}
			if err := p.hold(ctx, st, sink); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("automation: step %d: %w", i+1, err)
			}
		}
		if !p.sc.Loop || p.sc.Duration() == 0 {
			return nil
		}
	}
}

func (p *Player) apply(st Step, sink source.Sink) error {
	if st.Shape != "" {
		if _, err := sink.SwitchShapeByName(st.Shape); err != nil {
			return err
		}
	}
	if st.Color != "" {
		if err := sink.SetColorHex(st.Color); err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) hold(ctx context.Context, st Step, sink source.Sink) error {
	var hands []gesture.Hand
	if st.Gesture != nil {
		hands = st.Gesture.Landmarks()
	}

	send := func() error {
		if st.Gesture == nil {
			return nil
		}
		return sink.HandleLandmarks(gesture.Result{Hands: hands, At: p.now()})
	}
	if err := send(); err != nil {
		return err
	}

	deadline := time.NewTimer(st.Hold)
	defer deadline.Stop()
	ticker := time.NewTicker(p.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}
