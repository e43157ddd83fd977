package shapes

import (
	"math/rand"

	"github.com/chewxy/math32"
)

// Sample is one generated particle target.
type Sample struct {
	X, Y, Z float32
	Tag     ColorTag
}

// Generator maps a particle index to a target point.
type Generator func(i, n int, rng *rand.Rand) Sample

// MaxCoord bounds every generated coordinate.
const MaxCoord float32 = 64

var generators = [numShapes]Generator{
	Heart:         heart,
	Flower:        flower,
	Saturn:        saturn,
	Buddha:        buddha,
	Fireworks:     fireworks,
	ChristmasTree: christmasTree,
}

// extents are the bounding radii used to frame each shape.
var extents = [numShapes]float32{
	Heart:         9,
	Flower:        10,
	Saturn:        18.5,
	Buddha:        11.5,
	Fireworks:     25,
	ChristmasTree: 12,
}

// GeneratorFor returns the generator bound to s, or the default shape's
// generator when s is out of range.
func GeneratorFor(s Shape) Generator {
	if !s.Valid() {
		s = Default
	}
	return generators[s]
}

// Extent returns the bounding radius of s.
func Extent(s Shape) float32 {
	if !s.Valid() {
		s = Default
	}
	return extents[s]
}

// Generate samples particle i of n for shape s. The result is always finite
// and within ±MaxCoord.
func Generate(s Shape, i, n int, rng *rand.Rand) Sample {
	return Sanitize(GeneratorFor(s)(i, n, rng))
}

// Sanitize replaces non-finite coordinates with 0 and clamps to ±MaxCoord.
func Sanitize(s Sample) Sample {
	s.X = clampCoord(s.X)
	s.Y = clampCoord(s.Y)
	s.Z = clampCoord(s.Z)
	return s
}

func clampCoord(v float32) float32 {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return 0
	}
	if v > MaxCoord {
		return MaxCoord
	}
	if v < -MaxCoord {
		return -MaxCoord
	}
	return v
}

func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lo + rng.Float32()*(hi-lo)
}

// onSphere returns a uniformly distributed unit vector.
func onSphere(rng *rand.Rand) (x, y, z float32) {
	theta := rng.Float32() * 2 * math32.Pi
	cosPhi := 2*rng.Float32() - 1
	sinPhi := math32.Sqrt(1 - cosPhi*cosPhi)
	return sinPhi * math32.Cos(theta), cosPhi, sinPhi * math32.Sin(theta)
}

const heartScale = 0.5

// heart fills the curve with three bands: outline, mid-fill and a dense core.
func heart(i, n int, rng *rand.Rand) Sample {
	t := rng.Float32() * 2 * math32.Pi

	var scale float32
	switch band := rng.Float32(); {
	case band < 0.3:
		scale = 1
	case band < 0.6:
		scale = uniform(rng, 0.6, 0.8)
	default:
		scale = uniform(rng, 0.3, 0.6)
	}

	st := math32.Sin(t)
	x := 16 * st * st * st
	y := 13*math32.Cos(t) - 5*math32.Cos(2*t) - 2*math32.Cos(3*t) - math32.Cos(4*t)

	return Sample{
		X: x*heartScale*scale + uniform(rng, -0.2, 0.2),
		Y: y*heartScale*scale + uniform(rng, -0.2, 0.2),
		Z: uniform(rng, -1.2, 1.2),
	}
}

const (
	flowerRadius = 10
	flowerPetals = 5
)

func flower(i, n int, rng *rand.Rand) Sample {
	theta := rng.Float32() * 2 * math32.Pi
	cosPhi := 2*rng.Float32() - 1
	sinPhi := math32.Sqrt(1 - cosPhi*cosPhi)

	// petals are bands of the polar angle
	phi := math32.Acos(cosPhi)
	petal := 0.55 + 0.45*math32.Abs(math32.Cos(flowerPetals*phi))
	r := flowerRadius * petal * uniform(rng, 0.85, 1)

	return Sample{
		X: r * sinPhi * math32.Cos(theta),
		Y: r * cosPhi,
		Z: r * sinPhi * math32.Sin(theta),
	}
}

const (
	ringInner    = 12
	ringOuter    = 18
	planetRadius = 8
	ringTilt     = 0.35
)

func saturn(i, n int, rng *rand.Rand) Sample {
	if rng.Float32() < 0.6 {
		a := rng.Float32() * 2 * math32.Pi
		// uniform over area, not over radius
		r := math32.Sqrt(ringInner*ringInner + rng.Float32()*(ringOuter*ringOuter-ringInner*ringInner))
		x, y, z := r*math32.Cos(a), uniform(rng, -0.3, 0.3), r*math32.Sin(a)

		c, s := math32.Cos(ringTilt), math32.Sin(ringTilt)
		return Sample{X: x, Y: y*c - z*s, Z: y*s + z*c}
	}

	x, y, z := onSphere(rng)
	return Sample{X: x * planetRadius, Y: y * planetRadius, Z: z * planetRadius}
}

func buddha(i, n int, rng *rand.Rand) Sample {
	switch region := rng.Float32(); {
	case region < 0.15:
		// head and halo core
		x, y, z := onSphere(rng)
		r := 2.8 * math32.Cbrt(rng.Float32())
		return Sample{X: x * r, Y: 8.5 + y*r, Z: z * r}

	case region < 0.5:
		// body cone tapering toward the shoulders
		h := rng.Float32()
		radius := 6*(1-h) + 1
		r := radius * math32.Sqrt(rng.Float32())
		a := rng.Float32() * 2 * math32.Pi
		return Sample{X: r * math32.Cos(a), Y: -3 + 10*h, Z: r * math32.Sin(a) * 0.7}

	default:
		// seated base
		u := rng.Float32() * 2 * math32.Pi
		v := rng.Float32() * 2 * math32.Pi
		minor := 2 * math32.Sqrt(rng.Float32())
		rr := 7 + minor*math32.Cos(v)
		return Sample{X: rr * math32.Cos(u), Y: -5 + minor*math32.Sin(v)*0.6, Z: rr * math32.Sin(u)}
	}
}

const fireworksRadius = 25

func fireworks(i, n int, rng *rand.Rand) Sample {
	x, y, z := onSphere(rng)
	r := fireworksRadius * math32.Cbrt(rng.Float32())
	return Sample{X: x * r, Y: y * r, Z: z * r}
}

const (
	treeBase   = -7
	treeHeight = 17
	treeRadius = 7.5
	treeTurns  = 7
	treeLayers = 9
)

func christmasTree(i, n int, rng *rand.Rand) Sample {
	switch region := rng.Float32(); {
	case region < 0.05:
		x, y, z := onSphere(rng)
		r := 0.9 * math32.Cbrt(rng.Float32())
		return Sample{X: x * r, Y: treeBase + treeHeight + 0.8 + y*r, Z: z * r, Tag: TagStar}

	case region < 0.2:
		h := rng.Float32()
		r := treeRadius*(1-h) + 0.25
		a := h*treeTurns*2*math32.Pi + uniform(rng, -0.05, 0.05)
		return Sample{
			X:   r * math32.Cos(a),
			Y:   treeBase + treeHeight*h,
			Z:   r * math32.Sin(a),
			Tag: lightTags[i%len(lightTags)],
		}

	case region < 0.9:
		h := rng.Float32()
		layer := math32.Floor(h * treeLayers)
		local := h*treeLayers - layer
		// each layer flares out toward its lower edge
		r := treeRadius * (1 - h) * (0.55 + 0.45*(1-local)) * (0.7 + 0.3*math32.Sqrt(rng.Float32()))
		a := h*treeLayers*math32.Pi + rng.Float32()*2*math32.Pi
		return Sample{X: r * math32.Cos(a), Y: treeBase + treeHeight*h, Z: r * math32.Sin(a), Tag: TagFoliage}

	default:
		r := 1.1 * math32.Sqrt(rng.Float32())
		a := rng.Float32() * 2 * math32.Pi
		return Sample{X: r * math32.Cos(a), Y: uniform(rng, treeBase-3, treeBase), Z: r * math32.Sin(a), Tag: TagTrunk}
	}
}
