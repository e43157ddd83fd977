package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/morphcloud/internal/analysis"
	"github.com/san-kum/morphcloud/internal/automation"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/export"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/san-kum/morphcloud/internal/storage"
	"github.com/spf13/cobra"
)

var (
	settleFrames int
	snapYaw      float64
	plotColumn   string
	svgOut       string
	cutoffHz     float64
	benchCounts  []int
	benchFrames  int
)

func listShapes(cmd *cobra.Command, args []string) error {
	fmt.Println("shapes:")
	for i, s := range shapes.All() {
		note := ""
		if s.Tagged() {
			note = "  (own palette)"
		}
		fmt.Printf("  %d  %-14s extent %5.1f%s\n", i+1, s, shapes.Extent(s), note)
	}
	fmt.Println("\ncolors:")
	for _, name := range shapes.SwatchNames() {
		fmt.Printf("  %-8s %s\n", name, shapes.Swatches[name].Hex())
	}
	return nil
}

// frameCapture keeps a copy of the last frame rendered.
type frameCapture struct {
	last engine.Frame
}

func (c *frameCapture) Render(f engine.Frame) error {
	c.last = f
	c.last.Positions = append([]float32(nil), f.Positions...)
	c.last.Colors = append([]float32(nil), f.Colors...)
	return nil
}

func (c *frameCapture) Resize(int, int) {}
func (c *frameCapture) Dispose() error  { return nil }

func snapshotShape(cmd *cobra.Command, args []string) error {
	shape, ok := shapes.Parse(args[0])
	if !ok {
		return fmt.Errorf("unknown shape %q (have %s)", args[0], strings.Join(shapes.Names(), ", "))
	}
	out := shape.String() + ".svg"
	if len(args) > 1 {
		out = args[1]
	}

	cfg := engine.DefaultConfig()
	cfg.Count = particles
	cfg.Shape = shape
	cfg.Seed = seed
	cfg.AutoRotate = 0
	if colorName != "" {
		c, err := shapes.ParseColor(colorName)
		if err != nil {
			return err
		}
		cfg.Color = c
	}

	capture := &frameCapture{}
	e, err := engine.New(cfg, capture, engine.WithLogger(newLogger(os.Stderr)))
	if err != nil {
		return err
	}
	defer e.Dispose()

	for i := 0; i < settleFrames; i++ {
		if err := e.Tick(time.Second / time.Duration(cfg.FPS)); err != nil {
			return err
		}
	}

	f := capture.last
	f.Yaw = float32(snapYaw)
	svg := export.CloudToSVG(f, export.DefaultCloudOptions())
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d particles)\n", out, f.Count)
	return nil
}

func listSessions(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	sessions, err := st.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSOURCE\tSHAPE\tPARTICLES\tFRAMES\tTICKS\tDURATION\tTRACKING")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%.0f%%\n",
			s.ID, s.Source, s.Shape, s.Particles, s.Frames, s.Ticks,
			s.Duration().Round(time.Second), s.Metrics["tracking_ratio"]*100)
	}
	return w.Flush()
}

func plotSession(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	tel, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}
	if len(tel.Times) == 0 {
		return fmt.Errorf("session %s has no telemetry", args[0])
	}
	series := tel.Get(plotColumn)
	if len(series) == 0 {
		return fmt.Errorf("no data for column %q (have %s)", plotColumn, strings.Join(tel.Columns[1:], ", "))
	}

	data := series
	if len(data) > 200 {
		step := len(data) / 200
		data = make([]float64, 0, 200)
		for i := 0; i < len(series); i += step {
			data = append(data, series[i])
		}
	}

	graph := asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("%s over %.1fs", plotColumn, tel.Times[len(tel.Times)-1])),
	)
	fmt.Println(graph)

	if svgOut != "" {
		svg := export.SeriesToSVG(tel.Times, series, 800, 300, "#ff7eb6")
		if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgOut)
	}
	return nil
}

func analyzeSession(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	tel, err := st.LoadTelemetry(args[0])
	if err != nil {
		return err
	}

	reports := analysis.AnalyzeTelemetry(tel, cutoffHz)
	fmt.Printf("jitter above %.1f Hz:\n\n", cutoffHz)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tSAMPLES\tRATE\tDOMINANT\tHIGH BAND\tMEAN STEP\tRANGE")
	for _, col := range analysis.SmoothedColumns {
		r, ok := reports[col]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%.1f Hz\t%.2f Hz\t%.1f%%\t%.4f\t[%.3f, %.3f]\n",
			col, r.Samples, r.SampleRate, r.DominantHz, r.HighBandRatio*100, r.MeanStep, r.Min, r.Max)
	}
	return w.Flush()
}

func runBench(cmd *cobra.Command, args []string) error {
	shape, ok := shapes.Parse(shapeName)
	if !ok {
		return fmt.Errorf("unknown shape %q", shapeName)
	}

	fmt.Printf("benchmarking %s, %d frames per count...\n", shape, benchFrames)
	points, err := automation.RunSweep(context.Background(), automation.Sweep{
		Counts: benchCounts,
		Frames: benchFrames,
		Shape:  shape,
		Seed:   1,
		Base:   engine.DefaultConfig(),
	}, newLogger(os.Stderr))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARTICLES\tMEAN\tWORST\tFPS")
	for _, p := range points {
		fmt.Fprintf(w, "%d\t%v\t%v\t%.0f\n", p.Particles, p.MeanTick.Round(time.Microsecond), p.WorstTick.Round(time.Microsecond), p.FPS)
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
