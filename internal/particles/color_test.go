package particles

import (
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/shapes"
)

func TestSetColorOnPlainShapeIsImmediate(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 400, shapes.Heart, DefaultTuning())
	blue := shapes.Swatches["blue"]

	changed, err := b.SetColor(blue)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(changed).To(BeTrue())
	g.Expect(b.Color()).To(Equal(blue))
	g.Expect(b.InFastTransition()).To(BeTrue())

	for i := 0; i < b.Len(); i++ {
		k := 3 * i
		if b.Colors[k] != blue.R || b.Colors[k+1] != blue.G || b.Colors[k+2] != blue.B {
			t.Fatalf("particle %d color not applied", i)
		}
		if b.TargetColors()[k] != blue.R {
			t.Fatalf("particle %d target color not applied", i)
		}
	}
}

func TestSetColorOnTaggedShapeKeepsPalette(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 1000, shapes.ChristmasTree, DefaultTuning())
	before := append([]float32(nil), b.Colors...)

	changed, err := b.SetColor(shapes.Swatches["purple"])
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(changed).To(BeFalse())
	g.Expect(b.Colors).To(Equal(before))
	g.Expect(b.Color()).To(Equal(shapes.Swatches["purple"]))

	// the recorded color applies on the next plain shape
	g.Expect(b.SwitchShape(shapes.Flower)).To(Succeed())
	g.Expect(b.TargetColors()[0]).To(Equal(shapes.Swatches["purple"].R))
}

func TestSwitchToTaggedShapeUsesTagPalette(t *testing.T) {
	b := newTestBuffer(t, 1000, shapes.Heart, DefaultTuning())
	if err := b.SwitchShape(shapes.ChristmasTree); err != nil {
		t.Fatal(err)
	}
	for i, tag := range b.Tags() {
		want := shapes.TagColor(tag)
		got := b.TargetColors()[3*i : 3*i+3]
		if got[0] != want.R || got[1] != want.G || got[2] != want.B {
			t.Fatalf("particle %d (%s) color %v, want %v", i, tag, got, want)
		}
	}
}

func TestSetColorClamps(t *testing.T) {
	b := newTestBuffer(t, 10, shapes.Heart, DefaultTuning())
	if _, err := b.SetColor(shapes.RGB{R: 3, G: float32(math.NaN()), B: -1}); err != nil {
		t.Fatal(err)
	}
	if got := b.Color(); got != (shapes.RGB{R: 1}) {
		t.Errorf("Color() = %+v", got)
	}
}

func TestResolve(t *testing.T) {
	c := ColorController{global: shapes.Swatches["green"]}
	tests := []struct {
		name  string
		shape shapes.Shape
		tag   shapes.ColorTag
		want  shapes.RGB
	}{
		{"plain", shapes.Heart, shapes.TagNone, shapes.Swatches["green"]},
		{"plain ignores tag", shapes.Saturn, shapes.TagStar, shapes.Swatches["green"]},
		{"tree star", shapes.ChristmasTree, shapes.TagStar, shapes.TagColor(shapes.TagStar)},
		{"tree trunk", shapes.ChristmasTree, shapes.TagTrunk, shapes.TagColor(shapes.TagTrunk)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Resolve(tt.shape, tt.tag); got != tt.want {
				t.Errorf("Resolve = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModulate(t *testing.T) {
	const pi = float32(math.Pi)
	tests := []struct {
		name  string
		shape shapes.Shape
		exp   float32
		t     float32
		pinch float32
		want  float32
	}{
		{"heart beat peak", shapes.Heart, 1, pi / 16, 0, 1.05},
		{"heart half pinch stills", shapes.Heart, 1, pi / 16, 0.5, 1},
		{"heart quarter pinch", shapes.Heart, 2, pi / 16, 0.25, 2 * 1.025},
		{"fireworks peak", shapes.Fireworks, 1, pi / 4, 0, 1.3},
		{"fireworks trough", shapes.Fireworks, 2, 3 * pi / 4, 0, 1.4},
		{"tree peak", shapes.ChristmasTree, 1, pi / 3, 0, 1.08},
		{"saturn steady", shapes.Saturn, 1.7, 1.234, 0, 1.7},
		{"flower steady", shapes.Flower, 0.5, 9, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Modulate(tt.shape, tt.exp, tt.t, tt.pinch)
			if math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("Modulate = %v, want %v", got, tt.want)
			}
		})
	}
}
