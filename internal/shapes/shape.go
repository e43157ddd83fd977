package shapes

import (
	"strings"
)

// Shape identifies one entry of the closed shape catalog.
type Shape uint8

const (
	Heart Shape = iota
	Flower
	Saturn
	Buddha
	Fireworks
	ChristmasTree

	numShapes
)

// Default is used whenever a shape name or value is not recognized.
const Default = Heart

var shapeNames = [numShapes]string{
	Heart:         "heart",
	Flower:        "flower",
	Saturn:        "saturn",
	Buddha:        "buddha",
	Fireworks:     "fireworks",
	ChristmasTree: "christmasTree",
}

func (s Shape) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return shapeNames[s]
}

func (s Shape) Valid() bool { return s < numShapes }

// Tagged reports whether the shape carries per-particle color tags. Tagged
// shapes ignore the global color.
func (s Shape) Tagged() bool { return s == ChristmasTree }

// All returns the catalog in declaration order.
func All() []Shape {
	out := make([]Shape, 0, numShapes)
	for s := Shape(0); s < numShapes; s++ {
		out = append(out, s)
	}
	return out
}

// Names returns the catalog names in declaration order.
func Names() []string {
	out := make([]string, 0, numShapes)
	for _, n := range shapeNames {
		out = append(out, n)
	}
	return out
}

// Parse resolves a shape name. Matching ignores case, dashes and underscores
// so "christmas-tree" and "christmas_tree" both resolve.
func Parse(name string) (Shape, bool) {
	key := normalize(name)
	for s, n := range shapeNames {
		if normalize(n) == key {
			return Shape(s), true
		}
	}
	if key == "tree" || key == "christmas" {
		return ChristmasTree, true
	}
	return Default, false
}

// ParseOrDefault is Parse without the ok flag.
func ParseOrDefault(name string) Shape {
	s, _ := Parse(name)
	return s
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}

func (s Shape) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Shape) UnmarshalText(b []byte) error {
	*s = ParseOrDefault(string(b))
	return nil
}
