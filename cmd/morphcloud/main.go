package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/san-kum/morphcloud/internal/config"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/spf13/cobra"
)

var (
	configFile string
	preset     string
	verbose    bool
	dataDir    string

	shapeName string
	colorName string
	particles int
	fps       int
	seed      int64

	listen   string
	replay   string
	scenario string
	loop     bool
	record   bool
	watch    bool
	audioOn  bool
	gpu      bool
	duration time.Duration
	theme    string
)

// raylib and OpenGL calls must stay on the main thread.
func init() {
	runtime.LockOSThread()
}

// main registers the commands and runs the window when none is given.
func main() {
	rootCmd := &cobra.Command{
		Use:          "morphcloud",
		Short:        "gesture-steered morphing particle cloud",
		SilenceUsage: true,
		RunE:         runGUI,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use a tuning preset")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "session directory")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the particle window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}

	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "run the engine without a display",
		Args:  cobra.NoArgs,
		RunE:  runHeadless,
	}
	headlessCmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "render the cloud in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	tuiCmd.Flags().StringVar(&theme, "theme", "", "terminal theme")

	for _, c := range []*cobra.Command{rootCmd, guiCmd, headlessCmd, tuiCmd} {
		addRunFlags(c)
	}
	for _, c := range []*cobra.Command{rootCmd, guiCmd} {
		c.Flags().BoolVar(&gpu, "gpu", true, "draw points with the OpenGL path")
	}

	shapesCmd := &cobra.Command{
		Use:   "shapes",
		Short: "list shapes and color swatches",
		Args:  cobra.NoArgs,
		RunE:  listShapes,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [shape] [out.svg]",
		Short: "render a settled shape to SVG",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  snapshotShape,
	}
	snapshotCmd.Flags().StringVar(&colorName, "color", "", "swatch name or #rrggbb")
	snapshotCmd.Flags().IntVar(&particles, "particles", 8000, "particle count")
	snapshotCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	snapshotCmd.Flags().IntVar(&settleFrames, "frames", 120, "frames to settle before capture")
	snapshotCmd.Flags().Float64Var(&snapYaw, "yaw", 0.4, "view yaw in radians")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "list recorded sessions",
		Args:  cobra.NoArgs,
		RunE:  listSessions,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [session_id]",
		Short: "plot a telemetry column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotSession,
	}
	plotCmd.Flags().StringVar(&plotColumn, "column", "expansion", "telemetry column")
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the series to this SVG file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [session_id]",
		Short: "jitter analysis of the smoothed controls",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeSession,
	}
	analyzeCmd.Flags().Float64Var(&cutoffHz, "cutoff", 3, "high band starts at this frequency (Hz)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list tuning presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-12s %s\n", name, config.GetPreset(name).Description)
			}
			return nil
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure tick cost across particle counts",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	benchCmd.Flags().IntSliceVar(&benchCounts, "counts", []int{5000, 10000, 25000, 50000, 100000}, "particle counts")
	benchCmd.Flags().IntVar(&benchFrames, "frames", 240, "frames per count")
	benchCmd.Flags().StringVar(&shapeName, "shape", "heart", "shape")

	rootCmd.AddCommand(guiCmd, headlessCmd, tuiCmd, shapesCmd, snapshotCmd, sessionsCmd, plotCmd, analyzeCmd, presetsCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&shapeName, "shape", "", "initial shape")
	f.StringVar(&colorName, "color", "", "initial color: swatch name or #rrggbb")
	f.IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	f.IntVar(&fps, "fps", config.DefaultFPS, "target frame rate")
	f.Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	f.StringVar(&listen, "listen", config.DefaultListen, "landmark server address (empty disables)")
	f.StringVar(&replay, "replay", "", "replay a recorded frames.jsonl")
	f.StringVar(&scenario, "scenario", "", "play a scenario file")
	f.BoolVar(&loop, "loop", false, "loop replay or scenario")
	f.BoolVar(&record, "record", false, "record the session")
	f.BoolVar(&watch, "watch", false, "reload tuning when the config file changes")
	f.BoolVar(&audioOn, "audio", false, "play the ambient pad")
}

// loadConfig resolves file, preset and flags in that order.
func loadConfig(cmd *cobra.Command, log *slog.Logger) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if preset != "" {
		if err := cfg.ApplyPreset(preset); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("shape") {
		cfg.Shape = shapeName
	}
	if flags.Changed("color") {
		cfg.Color = colorName
	}
	if flags.Changed("particles") {
		cfg.Particles = particles
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("listen") {
		cfg.Source.Listen = listen
	}
	if flags.Changed("replay") {
		cfg.Source.Replay = replay
	}
	if flags.Changed("record") {
		cfg.Record.Enabled = record
	}
	if flags.Changed("data") {
		cfg.Record.Dir = dataDir
	}
	if flags.Changed("audio") {
		cfg.Audio.Enabled = audioOn
	}
	if flags.Changed("gpu") {
		cfg.Window.GPU = gpu
	}
	if flags.Changed("theme") {
		cfg.Theme = theme
	}

	if _, ok := shapes.Parse(cfg.Shape); !ok && cfg.Shape != "" {
		log.Warn("unknown shape, using default", "shape", cfg.Shape, "default", shapes.Default, "have", shapes.Names())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w *os.File) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
