package export

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/shapes"
	"github.com/san-kum/morphcloud/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	g := NewWithT(t)
	c := viz.NewCanvas(2, 1)
	c.Plot(0, 0, 0, shapes.RGB{R: 1})
	c.Plot(3, 3, 0, shapes.RGB{G: 1})

	svg := CanvasToSVG(c, 10)
	g.Expect(svg).To(HavePrefix("<?xml"))
	g.Expect(svg).To(ContainSubstring(`width="40" height="40"`))
	g.Expect(strings.Count(svg, "<circle")).To(Equal(2))
	g.Expect(svg).To(ContainSubstring("#ff0000"))
	g.Expect(svg).To(ContainSubstring("#00ff00"))
	g.Expect(CanvasToSVG(nil, 1)).To(BeEmpty())
}

func TestCloudToSVGSortsAndSamples(t *testing.T) {
	g := NewWithT(t)
	f := engine.Frame{
		Count:     3,
		Shape:     shapes.Saturn,
		Positions: []float32{0, 0, -10, 0, 0, 10, 0, 0, 100},
		Colors:    []float32{1, 0, 0, 0, 0, 1, 1, 1, 1},
	}
	opt := DefaultCloudOptions()

	svg := CloudToSVG(f, opt)
	// the third point is behind the camera
	g.Expect(strings.Count(svg, "<circle")).To(Equal(2))
	g.Expect(strings.Index(svg, "#ff0000")).To(BeNumerically("<", strings.Index(svg, "#0000ff")))
	g.Expect(svg).To(ContainSubstring("saturn"))

	opt.MaxPoints = 1
	g.Expect(strings.Count(CloudToSVG(f, opt), "<circle")).To(Equal(1))
}

func TestSeriesToSVG(t *testing.T) {
	g := NewWithT(t)
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{1, 3, 2}, 200, 100, "#00ffff")
	g.Expect(svg).To(ContainSubstring(`stroke="#00ffff"`))
	g.Expect(svg).To(ContainSubstring("M0.0,"))
	g.Expect(strings.Count(svg, " L")).To(Equal(2))
	g.Expect(SeriesToSVG([]float64{0}, []float64{1}, 10, 10, "red")).To(BeEmpty())
}

func TestHex(t *testing.T) {
	if got := hex(1, 0.5, -2); got != "#ff8000" {
		t.Errorf("hex = %s", got)
	}
}
