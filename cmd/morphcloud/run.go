package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/san-kum/morphcloud/internal/audio"
	"github.com/san-kum/morphcloud/internal/automation"
	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/gui"
	"github.com/san-kum/morphcloud/internal/metrics"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/san-kum/morphcloud/internal/source"
	"github.com/san-kum/morphcloud/internal/storage"
	"github.com/san-kum/morphcloud/internal/viz"
	"github.com/spf13/cobra"
)

// runtimeParts is everything wired around one engine.
type runtimeParts struct {
	cfg     *config.Config
	log     *slog.Logger
	server  *source.Server
	session *storage.Session
	pad     *audio.Pad
	opts    []engine.Option

	// cancel ends the run; set once the run context exists
	cancel context.CancelFunc
}

func prepare(cfg *config.Config, log *slog.Logger, sourceName string) (*runtimeParts, error) {
	p := &runtimeParts{cfg: cfg, log: log}

	if cfg.Record.Enabled {
		st := storage.New(cfg.Record.Dir)
		ss, err := st.Create(storage.SessionMetadata{
			Source:    sourceName,
			Shape:     shapes.ParseOrDefault(cfg.Shape).String(),
			Particles: cfg.Particles,
			Seed:      cfg.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		p.session = ss
		log.Info("recording session", "id", ss.ID(), "dir", st.Dir(ss.ID()))
	}

	mapperOpts := []gesture.Option{gesture.WithLogger(log), gesture.WithTuning(cfg.Gesture)}
	if cfg.Source.Listen != "" {
		srvOpts := []source.ServerOption{
			source.WithAddr(cfg.Source.Listen),
			source.WithPath(cfg.Source.Path),
			source.WithOrigins(cfg.Source.Origins...),
			source.WithServerLogger(log),
		}
		if p.session != nil {
			srvOpts = append(srvOpts, source.WithRecorder(p.session))
		}
		p.server = source.NewServer(srvOpts...)
		mapperOpts = append(mapperOpts, gesture.OnStatus(p.server.StatusHook()))
	}

	p.opts = append(p.opts,
		engine.WithLogger(log),
		engine.WithMapper(gesture.NewMapper(mapperOpts...)),
		engine.OnError(p.contextLost),
	)
	for _, m := range metrics.Standard() {
		p.opts = append(p.opts, engine.WithMetric(m))
	}
	if p.session != nil {
		p.opts = append(p.opts, engine.WithObserver(p.session))
	}

	if cfg.Audio.Enabled {
		p.pad = audio.NewPad(audio.WithLogger(log), audio.WithVolume(cfg.Audio.Volume))
		if err := p.pad.Start(); err != nil {
			log.Warn("audio unavailable", "err", err)
			p.pad = nil
		} else {
			p.opts = append(p.opts, engine.WithObserver(p.pad))
		}
	}
	return p, nil
}

// contextLost is the engine's fatal error hook. The engine has already
// disposed itself; the run is cancelled so sources and the UI stop.
func (p *runtimeParts) contextLost(err error) {
	p.log.Error("rendering context lost, stopping", "err", err)
	if p.cancel != nil {
		p.cancel()
	}
}

// start launches the landmark sources and the config watcher. The returned
// wait blocks until they have stopped.
func (p *runtimeParts) start(ctx context.Context, e *engine.Engine) (wait func()) {
	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				p.log.Error("source stopped", "source", name, "err", err)
			}
		}()
	}

	if p.server != nil {
		run("server", func() error { return p.server.Run(ctx, e) })
	}
	if p.cfg.Source.Replay != "" {
		r := source.NewReplay(p.cfg.Source.Replay, source.WithLoop(loop), source.WithReplayLogger(p.log))
		run("replay", func() error { return r.Run(ctx, p.sink(e)) })
	}
	if scenario != "" {
		run("scenario", func() error {
			sc, err := automation.LoadScenario(scenario)
			if err != nil {
				return err
			}
			sc.Loop = sc.Loop || loop
			return automation.NewPlayer(sc, automation.WithLogger(p.log)).Run(ctx, p.sink(e))
		})
	}
	if watch && configFile != "" {
		run("config", func() error {
			return config.Watch(ctx, configFile, p.log, func(c *config.Config) {
				if err := e.Retune(c.BufferTuning(), c.Gesture); err != nil {
					p.log.Warn("retune rejected", "err", err)
				}
			})
		})
	}
	return wg.Wait
}

// recordingSink tees replayed or scripted results into the session. The
// server records on its own.
type recordingSink struct {
	source.Sink
	rec source.Recorder
	log *slog.Logger
}

func (s recordingSink) HandleLandmarks(r gesture.Result) error {
	if err := s.rec.RecordFrame(r); err != nil {
		s.log.Debug("recording frame failed", "err", err)
	}
	return s.Sink.HandleLandmarks(r)
}

func (p *runtimeParts) sink(e *engine.Engine) source.Sink {
	if p.session == nil {
		return e
	}
	return recordingSink{Sink: e, rec: p.session, log: p.log}
}

// abort releases what prepare opened when no engine was built.
func (p *runtimeParts) abort() {
	if p.pad != nil {
		p.pad.Stop()
	}
	if p.session != nil {
		p.session.Close(nil)
	}
}

func (p *runtimeParts) close(e *engine.Engine) {
	if p.pad != nil {
		p.pad.Stop()
	}
	m := e.Metrics()
	if err := e.Dispose(); err != nil {
		p.log.Warn("dispose failed", "err", err)
	}
	if p.session != nil {
		if err := p.session.Close(m); err != nil {
			p.log.Warn("closing session failed", "err", err)
		}
		p.log.Info("session saved", "id", p.session.ID())
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runGUI(cmd *cobra.Command, args []string) error {
	log := newLogger(os.Stderr)
	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}
	parts, err := prepare(cfg, log, "gui")
	if err != nil {
		return err
	}

	app := gui.NewApp(gui.Options{
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		GPU:        cfg.Window.GPU,
		HUD:        cfg.Window.HUD,
		FPS:        cfg.FPS,
		Capacity:   cfg.Particles,
		Logger:     log,
		Audio:      parts.pad,
	})
	defer app.Close()

	e, err := engine.New(cfg.Engine(), app, parts.opts...)
	if err != nil {
		parts.abort()
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	parts.cancel = cancel
	wait := parts.start(ctx, e)

	err = app.Run(ctx, e)
	cancel()
	wait()
	parts.close(e)
	return err
}

func runHeadless(cmd *cobra.Command, args []string) error {
	log := newLogger(os.Stderr)
	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}
	parts, err := prepare(cfg, log, "headless")
	if err != nil {
		return err
	}

	e, err := engine.New(cfg.Engine(), engine.NopRenderer{}, parts.opts...)
	if err != nil {
		parts.abort()
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	parts.cancel = cancel
	if duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, duration)
		defer stop()
	}
	wait := parts.start(ctx, e)

	err = e.Run(ctx)
	cancel()
	wait()

	m := e.Metrics()
	parts.close(e)
	fmt.Printf("\nframes: %d\n", e.State().Frame)
	fmt.Println("metrics:")
	for _, name := range sortedKeys(m) {
		fmt.Printf("  %s: %.4f\n", name, m[name])
	}
	return err
}

func runTUI(cmd *cobra.Command, args []string) error {
	// the terminal belongs to the view; logs go to a file or nowhere
	var logOut io.Writer = io.Discard
	if verbose {
		f, err := os.Create("morphcloud.log")
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := loadConfig(cmd, log)
	if err != nil {
		return err
	}

	if !cmd.Flags().Changed("shape") {
		color, _ := shapes.ParseColor(cfg.Color)
		choice, ok, err := viz.RunPicker(viz.Choice{
			Shape:     shapes.ParseOrDefault(cfg.Shape),
			Color:     color,
			Particles: cfg.Particles,
		})
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Shape = choice.Shape.String()
		cfg.Color = choice.Color.Hex()
		cfg.Particles = choice.Particles
	}

	parts, err := prepare(cfg, log, "tui")
	if err != nil {
		return err
	}
	out := viz.NewTermRenderer(80, 24)
	e, err := engine.New(cfg.Engine(), out, parts.opts...)
	if err != nil {
		parts.abort()
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	parts.cancel = cancel
	wait := parts.start(ctx, e)

	err = viz.Run(e, out, viz.GetTheme(cfg.Theme))
	cancel()
	wait()
	parts.close(e)
	if errors.Is(err, engine.ErrDisposed) {
		return nil
	}
	return err
}
