package source

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/storage"
)

// Replay plays a recorded frames.jsonl back with its original timing.
type Replay struct {
	path  string
	speed float64
	loop  bool
	log   *slog.Logger
}

// ReplayOption configures a Replay.
type ReplayOption func(*Replay)

// WithSpeed scales playback; 2 plays twice as fast.
func WithSpeed(speed float64) ReplayOption {
	return func(r *Replay) {
		if speed > 0 {
			r.speed = speed
		}
	}
}

// WithLoop restarts playback at the end of the file.
func WithLoop(loop bool) ReplayOption {
	return func(r *Replay) { r.loop = loop }
}

// WithReplayLogger sets the logger.
func WithReplayLogger(l *slog.Logger) ReplayOption {
	return func(r *Replay) { r.log = l }
}

func NewReplay(path string, opts ...ReplayOption) *Replay {
	r := &Replay{path: path, speed: 1, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run feeds every frame to sink. It returns nil at the end of the file, or
// when ctx is done.
func (r *Replay) Run(ctx context.Context, sink Sink) error {
	for {
		n, err := r.playOnce(ctx, sink)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}
		r.log.Info("replay finished", "path", r.path, "frames", n)
		if !r.loop || n == 0 {
			return nil
		}
	}
}

func (r *Replay) playOnce(ctx context.Context, sink Sink) (int, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	start := time.Now()
	n := 0
	err = storage.ScanFrames(f, func(rec storage.FrameRecord) error {
		due := start.Add(time.Duration(rec.T / r.speed * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		err := sink.HandleLandmarks(gesture.Result{Hands: rec.Hands, At: time.Now()})
		if err != nil && !errors.Is(err, gesture.ErrMalformed) {
			return err
		}
		n++
		return nil
	})
	return n, err
}
