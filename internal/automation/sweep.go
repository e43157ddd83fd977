package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Sweep measures tick cost across particle counts.
type Sweep struct {
	Counts []int
	Frames int
	Shape  shapes.Shape
	Seed   int64
	Base   engine.Config
}

// SweepPoint is the result for one count.
type SweepPoint struct {
	Particles int
	MeanTick  time.Duration
	WorstTick time.Duration
	FPS       float64
}

// RunSweep ticks a headless engine Frames times per count. The shape is
// switched halfway so the fast transition is included.
func RunSweep(ctx context.Context, sw Sweep, log *slog.Logger) ([]SweepPoint, error) {
	if sw.Frames <= 0 {
		return nil, fmt.Errorf("automation: sweep needs frames > 0")
	}
	if log == nil {
		log = slog.Default()
	}

	points := make([]SweepPoint, 0, len(sw.Counts))
	for i, n := range sw.Counts {
		cfg := sw.Base
		cfg.Count = n
		cfg.Shape = sw.Shape
		cfg.Seed = sw.Seed

		e, err := engine.New(cfg, nil, engine.WithLogger(log))
		if err != nil {
			return points, fmt.Errorf("automation: sweep count %d: %w", n, err)
		}

		var total, worst time.Duration
		next := shapes.Shape((int(sw.Shape) + 1) % len(shapes.All()))
		for f := 0; f < sw.Frames; f++ {
			if err := ctx.Err(); err != nil {
				e.Dispose()
				return points, err
			}
			if f == sw.Frames/2 {
				e.SwitchShape(next)
			}
			start := time.Now()
			if err := e.Tick(time.Second / 60); err != nil {
				e.Dispose()
				return points, err
			}
			d := time.Since(start)
			total += d
			worst = max(worst, d)
		}
		e.Dispose()

		p := SweepPoint{Particles: n, MeanTick: total / time.Duration(sw.Frames), WorstTick: worst}
		if p.MeanTick > 0 {
			p.FPS = float64(time.Second) / float64(p.MeanTick)
		}
		points = append(points, p)
		log.Info("sweep point", "step", i+1, "of", len(sw.Counts), "particles", n, "mean", p.MeanTick, "worst", worst)
	}
	return points, nil
}
