package particles

import (
	"errors"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/shapes"
)

func newTestBuffer(t *testing.T, n int, s shapes.Shape, tuning Tuning) *Buffer {
	t.Helper()
	b, err := New(n, s, shapes.DefaultColor, tuning, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func quiet() Tuning {
	tn := DefaultTuning()
	tn.Jitter = 0
	return tn
}

func TestNewRejectsBadCount(t *testing.T) {
	for _, n := range []int{0, -5} {
		if _, err := New(n, shapes.Heart, shapes.DefaultColor, DefaultTuning(), nil); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("New(%d) err = %v, want ErrInvalidCount", n, err)
		}
	}
}

func TestNewAllocatesExactly(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 1000, shapes.Saturn, DefaultTuning())

	g.Expect(b.Len()).To(Equal(1000))
	g.Expect(b.Positions).To(HaveLen(3000))
	g.Expect(b.Colors).To(HaveLen(3000))
	g.Expect(b.Targets()).To(HaveLen(3000))
	g.Expect(b.Tags()).To(HaveLen(1000))
	g.Expect(b.InFastTransition()).To(BeFalse())
	g.Expect(b.Shape()).To(Equal(shapes.Saturn))
}

func TestConvergenceIsGeometric(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 2000, shapes.Heart, quiet())

	initial := b.MeanError(1)
	g.Expect(initial).To(BeNumerically(">", 1))

	prev := initial
	r := float64(b.Tuning().PositionRate)
	for f := 1; f <= 12; f++ {
		b.Tick(float32(f)/60, 1)
		e := b.MeanError(1)
		g.Expect(e).To(BeNumerically("<", prev), "frame %d", f)
		g.Expect(e).To(BeNumerically("<=", initial*math.Pow(1-r, float64(f))*1.001+1e-5), "frame %d", f)
		prev = e
	}
}

func TestColorsConvergeTowardTargets(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 500, shapes.Flower, quiet())

	// perturb current colors only
	for i := range b.Colors {
		b.Colors[i] = 0
	}
	for f := 0; f < 30; f++ {
		b.Tick(0, 1)
	}
	c := shapes.DefaultColor
	g.Expect(b.Colors[0]).To(BeNumerically("~", c.R, 1e-4))
	g.Expect(b.Colors[1]).To(BeNumerically("~", c.G, 1e-4))
	g.Expect(b.Colors[2]).To(BeNumerically("~", c.B, 1e-4))
}

func TestFastTransitionLastsExactlyFiveFrames(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 1000, shapes.Heart, quiet())

	g.Expect(b.SwitchShape(shapes.Fireworks)).To(Succeed())
	g.Expect(b.FastFramesRemaining()).To(Equal(5))

	for f := 1; f <= 5; f++ {
		g.Expect(b.InFastTransition()).To(BeTrue(), "before frame %d", f)
		b.Tick(float32(f)/60, 1.5)
		tgt := b.Targets()
		for k := range b.Positions {
			if math.Abs(float64(b.Positions[k]-tgt[k]*1.5)) > 1e-4 {
				t.Fatalf("frame %d: position %d = %v, want %v", f, k, b.Positions[k], tgt[k]*1.5)
			}
		}
	}
	g.Expect(b.InFastTransition()).To(BeFalse())

	// blending resumes: a changed expansion is only half reached
	b.Tick(0.2, 1)
	tgt := b.Targets()
	want := tgt[0]*1.5 + (tgt[0]-tgt[0]*1.5)*0.5
	g.Expect(b.Positions[0]).To(BeNumerically("~", want, 1e-4))
}

func TestNonFiniteExpansionIsReset(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 300, shapes.Buddha, DefaultTuning())

	inputs := []float32{
		float32(math.NaN()),
		float32(math.Inf(1)),
		float32(math.Inf(-1)),
		0,
		-2,
	}
	for _, e := range inputs {
		g.Expect(b.Tick(1, e)).To(Equal(float32(1)), "expansion %v", e)
	}
	g.Expect(b.Tick(1, 100)).To(Equal(b.Tuning().MaxExpansion))

	b.Tick(float32(math.NaN()), 2)
	for _, v := range b.Positions {
		g.Expect(math.IsNaN(float64(v)) || math.IsInf(float64(v), 0)).To(BeFalse())
	}
}

func TestSwitchShapeIsAtomicOnGeneratorPanic(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 800, shapes.Saturn, DefaultTuning())

	before := append([]float32(nil), b.Targets()...)
	beforeTags := append([]shapes.ColorTag(nil), b.Tags()...)

	b.generatorFor = func(shapes.Shape) shapes.Generator {
		return func(i, n int, _ *rand.Rand) shapes.Sample {
			if i == n/2 {
				panic("boom")
			}
			return shapes.Sample{X: 1, Y: 2, Z: 3}
		}
	}

	err := b.SwitchShape(shapes.Flower)
	g.Expect(err).To(MatchError(ErrGenerate))

	var ge *GenerateError
	g.Expect(errors.As(err, &ge)).To(BeTrue())
	g.Expect(ge.Index).To(Equal(400))
	g.Expect(ge.Shape).To(Equal(shapes.Flower))

	g.Expect(b.Targets()).To(Equal(before))
	g.Expect(b.Tags()).To(Equal(beforeTags))
	g.Expect(b.Shape()).To(Equal(shapes.Saturn))
	g.Expect(b.InFastTransition()).To(BeFalse())
}

func TestSwitchShapeSanitizesGeneratorOutput(t *testing.T) {
	b := newTestBuffer(t, 100, shapes.Heart, DefaultTuning())
	b.generatorFor = func(shapes.Shape) shapes.Generator {
		return func(int, int, *rand.Rand) shapes.Sample {
			return shapes.Sample{X: float32(math.NaN()), Y: 1e9, Z: float32(math.Inf(-1))}
		}
	}
	if err := b.SwitchShape(shapes.Fireworks); err != nil {
		t.Fatalf("SwitchShape: %v", err)
	}
	for i := 0; i < b.Len(); i++ {
		tgt := b.Targets()[3*i : 3*i+3]
		if tgt[0] != 0 || tgt[1] != shapes.MaxCoord || tgt[2] != 0 {
			t.Fatalf("particle %d target %v not sanitized", i, tgt)
		}
	}
}

func TestSwitchEnvelopeIsRepeatable(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 4000, shapes.Heart, DefaultTuning())

	radius := func() float64 {
		tgt := b.Targets()
		sum := 0.0
		for i := 0; i < b.Len(); i++ {
			x, y, z := tgt[3*i], tgt[3*i+1], tgt[3*i+2]
			sum += math.Sqrt(float64(x*x + y*y + z*z))
		}
		return sum / float64(b.Len())
	}

	g.Expect(b.SwitchShape(shapes.Saturn)).To(Succeed())
	first := radius()
	g.Expect(b.SwitchShape(shapes.Heart)).To(Succeed())
	g.Expect(b.SwitchShape(shapes.Saturn)).To(Succeed())
	g.Expect(radius()).To(BeNumerically("~", first, 0.3))
}

func TestJitterIsDeterministic(t *testing.T) {
	a := newTestBuffer(t, 500, shapes.Flower, DefaultTuning())
	b := newTestBuffer(t, 500, shapes.Flower, DefaultTuning())

	for f := 0; f < 20; f++ {
		a.Tick(float32(f)*0.016, 1.2)
		b.Tick(float32(f)*0.016, 1.2)
	}
	for i := range a.Positions {
		if a.Positions[i] != b.Positions[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a.Positions[i], b.Positions[i])
		}
	}
}

func TestJitterDoesNotDrift(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 500, shapes.Fireworks, DefaultTuning())

	for f := 0; f < 600; f++ {
		b.Tick(float32(f)/60, 1)
	}
	// bounded by jitter amplitude across three axes
	g.Expect(b.MeanError(1)).To(BeNumerically("<", float64(b.Tuning().Jitter)*2))
}

func TestReleaseMakesBufferInert(t *testing.T) {
	g := NewWithT(t)
	b := newTestBuffer(t, 100, shapes.Heart, DefaultTuning())
	b.Release()
	b.Release()

	g.Expect(b.Released()).To(BeTrue())
	g.Expect(b.SwitchShape(shapes.Flower)).To(MatchError(ErrReleased))
	_, err := b.SetColor(shapes.Swatches["blue"])
	g.Expect(err).To(MatchError(ErrReleased))
	g.Expect(b.Tick(1, 2)).To(Equal(float32(1)))
	g.Expect(b.Positions).To(BeNil())
}

func TestRetuneSanitizes(t *testing.T) {
	b := newTestBuffer(t, 10, shapes.Heart, DefaultTuning())
	b.Retune(Tuning{PositionRate: 2, ColorRate: float32(math.NaN()), FastFrames: -1, Jitter: -1, MaxExpansion: 0})
	if b.Tuning() != DefaultTuning() {
		t.Errorf("Retune kept invalid values: %+v", b.Tuning())
	}
}

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{1, 100, minChunk, minChunk*3 + 7, 25000} {
		hits := make([]int32, n)
		parallelFor(n, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func TestTrigTableAccuracy(t *testing.T) {
	for x := float32(-10); x < 10; x += 0.37 {
		if d := math.Abs(float64(jitterTable.Sin(x)) - math.Sin(float64(x))); d > 1e-3 {
			t.Errorf("Sin(%v) off by %v", x, d)
		}
		if d := math.Abs(float64(jitterTable.Cos(x)) - math.Cos(float64(x))); d > 1e-3 {
			t.Errorf("Cos(%v) off by %v", x, d)
		}
	}
}
