package particles

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Tuning holds the interpolation coefficients.
type Tuning struct {
	PositionRate float32 // blend per tick toward position targets
	ColorRate    float32 // blend per tick toward color targets
	FastFrames   int     // ticks that write targets directly after a switch
	Jitter       float32 // amplitude of the deterministic shimmer
	MaxExpansion float32
	Workers      int // 0 means runtime.NumCPU()
}

// DefaultTuning returns the stock coefficients.
func DefaultTuning() Tuning {
	return Tuning{
		PositionRate: 0.5,
		ColorRate:    0.4,
		FastFrames:   5,
		Jitter:       0.04,
		MaxExpansion: 5,
	}
}

func (t Tuning) sanitized() Tuning {
	d := DefaultTuning()
	if !(t.PositionRate > 0 && t.PositionRate <= 1) {
		t.PositionRate = d.PositionRate
	}
	if !(t.ColorRate > 0 && t.ColorRate <= 1) {
		t.ColorRate = d.ColorRate
	}
	if t.FastFrames < 0 {
		t.FastFrames = d.FastFrames
	}
	if !(t.Jitter >= 0) || math32.IsInf(t.Jitter, 0) {
		t.Jitter = d.Jitter
	}
	if !(t.MaxExpansion > 0) || math32.IsInf(t.MaxExpansion, 0) {
		t.MaxExpansion = d.MaxExpansion
	}
	return t
}

// initialSpread is the half-width of the cube initial positions are drawn from.
const initialSpread = 30

// Buffer is the struct-of-arrays particle state. All slices are allocated
// in New and never grow.
type Buffer struct {
	n      int
	tuning Tuning
	rng    *rand.Rand

	// Positions and Colors are the renderable arrays, 3 floats per particle.
	Positions []float32
	Colors    []float32

	targets      []float32
	targetColors []float32
	tags         []shapes.ColorTag

	scratch     []float32
	scratchTags []shapes.ColorTag

	shape      shapes.Shape
	color      ColorController
	fastFrames int
	released   bool

	generatorFor func(shapes.Shape) shapes.Generator
}

// New allocates a buffer of n particles at random positions with shape's
// targets pre-generated. The first frames converge from the random cloud.
func New(n int, shape shapes.Shape, color shapes.RGB, tuning Tuning, rng *rand.Rand) (*Buffer, error) {
	if n <= 0 {
		return nil, ErrInvalidCount
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if !shape.Valid() {
		shape = shapes.Default
	}

	b := &Buffer{
		n:            n,
		tuning:       tuning.sanitized(),
		rng:          rng,
		Positions:    make([]float32, 3*n),
		Colors:       make([]float32, 3*n),
		targets:      make([]float32, 3*n),
		targetColors: make([]float32, 3*n),
		tags:         make([]shapes.ColorTag, n),
		scratch:      make([]float32, 3*n),
		scratchTags:  make([]shapes.ColorTag, n),
		shape:        shape,
		color:        ColorController{global: color.Clamped()},
		generatorFor: shapes.GeneratorFor,
	}

	for i := range b.Positions {
		b.Positions[i] = (rng.Float32()*2 - 1) * initialSpread
	}

	if err := b.generate(shape); err != nil {
		return nil, err
	}
	b.commit(shape)
	b.color.fill(b.Colors, b.shape, b.tags)

	return b, nil
}

// Len returns the particle count.
func (b *Buffer) Len() int { return b.n }

// Shape returns the shape the targets currently hold.
func (b *Buffer) Shape() shapes.Shape { return b.shape }

// Color returns the global color.
func (b *Buffer) Color() shapes.RGB { return b.color.global }

// Tuning returns the active coefficients.
func (b *Buffer) Tuning() Tuning { return b.tuning }

// Retune replaces the coefficients. Invalid fields fall back to defaults.
func (b *Buffer) Retune(t Tuning) { b.tuning = t.sanitized() }

// Targets returns the committed position targets. Callers must not modify it.
func (b *Buffer) Targets() []float32 { return b.targets }

// TargetColors returns the committed color targets. Callers must not modify it.
func (b *Buffer) TargetColors() []float32 { return b.targetColors }

// Tags returns the color tag per particle. Callers must not modify it.
func (b *Buffer) Tags() []shapes.ColorTag { return b.tags }

// FastFramesRemaining returns how many more ticks write targets directly.
func (b *Buffer) FastFramesRemaining() int { return b.fastFrames }

// InFastTransition reports whether the next tick bypasses blending.
func (b *Buffer) InFastTransition() bool { return b.fastFrames > 0 }

// Released reports whether Release has been called.
func (b *Buffer) Released() bool { return b.released }

// SwitchShape regenerates every target for s. Generation runs into scratch
// space; on failure the committed targets are untouched and a *GenerateError
// is returned.
func (b *Buffer) SwitchShape(s shapes.Shape) error {
	if b.released {
		return ErrReleased
	}
	if !s.Valid() {
		s = shapes.Default
	}
	if err := b.generate(s); err != nil {
		return err
	}
	b.commit(s)
	b.fastFrames = b.tuning.FastFrames
	return nil
}

func (b *Buffer) generate(s shapes.Shape) (err error) {
	gen := b.generatorFor(s)
	i := 0
	defer func() {
		if r := recover(); r != nil {
			err = &GenerateError{Shape: s, Index: i, Cause: r}
		}
	}()

	for i = 0; i < b.n; i++ {
		p := shapes.Sanitize(gen(i, b.n, b.rng))
		b.scratch[3*i] = p.X
		b.scratch[3*i+1] = p.Y
		b.scratch[3*i+2] = p.Z
		b.scratchTags[i] = p.Tag
	}
	return nil
}

func (b *Buffer) commit(s shapes.Shape) {
	b.targets, b.scratch = b.scratch, b.targets
	b.tags, b.scratchTags = b.scratchTags, b.tags
	b.shape = s
	b.color.fill(b.targetColors, s, b.tags)
}

// Tick advances the interpolation by one frame. expansion is sanitized
// first: non-finite or non-positive values become 1, large values clamp to
// MaxExpansion. The value actually used is returned.
func (b *Buffer) Tick(elapsed, expansion float32) float32 {
	if b.released {
		return 1
	}
	expansion = b.clampExpansion(expansion)
	if math32.IsNaN(elapsed) || math32.IsInf(elapsed, 0) {
		elapsed = 0
	}

	fast := b.fastFrames > 0
	pr, cr := b.tuning.PositionRate, b.tuning.ColorRate
	if fast {
		pr, cr = 1, 1
		b.fastFrames--
	}
	amp := b.tuning.Jitter

	parallelFor(b.n, b.tuning.Workers, func(start, end int) {
		pos, col := b.Positions, b.Colors
		tgt, tcol := b.targets, b.targetColors
		for i := start; i < end; i++ {
			jx, jy, jz := jitter(elapsed, i, amp)
			k := 3 * i

			pos[k] += (tgt[k]*expansion + jx - pos[k]) * pr
			pos[k+1] += (tgt[k+1]*expansion + jy - pos[k+1]) * pr
			pos[k+2] += (tgt[k+2]*expansion + jz - pos[k+2]) * pr

			col[k] += (tcol[k] - col[k]) * cr
			col[k+1] += (tcol[k+1] - col[k+1]) * cr
			col[k+2] += (tcol[k+2] - col[k+2]) * cr
		}
	})

	return expansion
}

func (b *Buffer) clampExpansion(e float32) float32 {
	if math32.IsNaN(e) || math32.IsInf(e, 0) || e <= 0 {
		return 1
	}
	if e > b.tuning.MaxExpansion {
		return b.tuning.MaxExpansion
	}
	return e
}

// jitter is a pure function of time and index so repeated ticks never
// accumulate drift.
func jitter(t float32, i int, amp float32) (x, y, z float32) {
	if amp == 0 {
		return 0, 0, 0
	}
	phase := float32(i) * 0.37
	x = amp * jitterTable.Sin(2*t+phase)
	y = amp * jitterTable.Cos(1.7*t+phase*1.3)
	z = amp * jitterTable.Sin(1.3*t+phase*0.7)
	return x, y, z
}

// MeanError returns the mean euclidean distance between current positions
// and targets scaled by expansion, ignoring jitter.
func (b *Buffer) MeanError(expansion float32) float64 {
	if b.released || b.n == 0 {
		return 0
	}
	expansion = b.clampExpansion(expansion)
	var sum float64
	for i := 0; i < b.n; i++ {
		k := 3 * i
		dx := b.Positions[k] - b.targets[k]*expansion
		dy := b.Positions[k+1] - b.targets[k+1]*expansion
		dz := b.Positions[k+2] - b.targets[k+2]*expansion
		sum += float64(math32.Sqrt(dx*dx + dy*dy + dz*dz))
	}
	return sum / float64(b.n)
}

// Release drops the arrays. The buffer is inert afterwards.
func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.Positions, b.Colors = nil, nil
	b.targets, b.targetColors, b.tags = nil, nil, nil
	b.scratch, b.scratchTags = nil, nil
	b.n = 0
}
