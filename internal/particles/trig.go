package particles

import "github.com/chewxy/math32"

// trigTable provides precomputed sin values for the per-particle jitter.
// Values between entries are linearly interpolated.
type trigTable struct {
	sin []float32
	n   int
}

// 4096 entries is ~0.0015 rad resolution, well below what the jitter shows.
var jitterTable = newTrigTable(4096)

func newTrigTable(n int) *trigTable {
	t := &trigTable{sin: make([]float32, n), n: n}
	for i := 0; i < n; i++ {
		t.sin[i] = math32.Sin(float32(i) * 2 * math32.Pi / float32(n))
	}
	return t
}

// Sin returns approximate sin(x).
func (t *trigTable) Sin(x float32) float32 {
	x = math32.Mod(x, 2*math32.Pi)
	if x < 0 {
		x += 2 * math32.Pi
	}

	idx := x * float32(t.n) / (2 * math32.Pi)
	i := int(idx)
	frac := idx - float32(i)

	i0 := i % t.n
	i1 := (i + 1) % t.n

	return t.sin[i0]*(1-frac) + t.sin[i1]*frac
}

// Cos returns approximate cos(x).
func (t *trigTable) Cos(x float32) float32 {
	return t.Sin(x + math32.Pi/2)
}
