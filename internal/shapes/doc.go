// Package shapes provides the procedural point distributions the particle
// cloud morphs between.
//
// The catalog is a closed enumeration:
//
//   - [Heart]: filled parametric heart built from three scale bands
//   - [Flower]: rose-curve modulated sphere
//   - [Saturn]: tilted ring plus planet shell
//   - [Buddha]: head, tapering body and torus base
//   - [Fireworks]: volumetric burst
//   - [ChristmasTree]: tagged star, string lights, foliage and trunk
//
// Generators are pure functions of the particle index and a caller supplied
// random source. They are called once per particle on every shape switch,
// never per frame.
//
// # Example
//
//	rng := rand.New(rand.NewSource(1))
//	for i := 0; i < n; i++ {
//		s := shapes.Generate(shapes.Saturn, i, n, rng)
//		pos[i*3], pos[i*3+1], pos[i*3+2] = s.X, s.Y, s.Z
//	}
package shapes
