package shapes

import (
	"fmt"
	"sort"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is a linear color with channels in [0,1].
type RGB struct {
	R, G, B float32
}

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().Hex()
}

func (c RGB) String() string { return c.Hex() }

// Clamped returns the color with every channel forced into [0,1]. NaN maps to 0.
func (c RGB) Clamped() RGB {
	return RGB{clamp01(c.R), clamp01(c.G), clamp01(c.B)}
}

func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ColorTag selects a fixed palette entry for tagged shapes.
type ColorTag uint8

const (
	TagNone ColorTag = iota
	TagStar
	TagLightRed
	TagLightGold
	TagLightBlue
	TagFoliage
	TagTrunk

	numTags
)

var tagNames = [numTags]string{"none", "star", "lightRed", "lightGold", "lightBlue", "foliage", "trunk"}

func (t ColorTag) String() string {
	if t >= numTags {
		return "unknown"
	}
	return tagNames[t]
}

// IsLight reports whether the tag is one of the string-light colors.
func (t ColorTag) IsLight() bool {
	return t == TagLightRed || t == TagLightGold || t == TagLightBlue
}

var lightTags = [3]ColorTag{TagLightRed, TagLightGold, TagLightBlue}

// tagPalette is the fixed table tagged shapes pull from. TagNone is never
// looked up; untagged particles take the global color.
var tagPalette = [numTags]RGB{
	TagNone:      {1, 1, 1},
	TagStar:      {1.0, 0.92, 0.45},
	TagLightRed:  {1.0, 0.18, 0.22},
	TagLightGold: {1.0, 0.72, 0.18},
	TagLightBlue: {0.3, 0.55, 1.0},
	TagFoliage:   {0.08, 0.62, 0.24},
	TagTrunk:     {0.45, 0.27, 0.1},
}

// TagColor returns the palette entry for a tag.
func TagColor(t ColorTag) RGB {
	if t >= numTags {
		return tagPalette[TagNone]
	}
	return tagPalette[t]
}

// Swatches are the named colors offered by the surrounding UI.
var Swatches = map[string]RGB{
	"pink":   mustHex("#ff4d8d"),
	"red":    mustHex("#ff3b30"),
	"orange": mustHex("#ff9500"),
	"gold":   mustHex("#ffd60a"),
	"green":  mustHex("#34c759"),
	"cyan":   mustHex("#32d7f0"),
	"blue":   mustHex("#0a84ff"),
	"purple": mustHex("#bf5af2"),
	"white":  mustHex("#ffffff"),
}

// DefaultColor is the initial global color.
var DefaultColor = Swatches["pink"]

// SwatchNames returns the swatch names sorted.
func SwatchNames() []string {
	names := make([]string, 0, len(Swatches))
	for n := range Swatches {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseColor accepts a swatch name or a #rrggbb / #rgb hex string.
func ParseColor(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if c, ok := Swatches[strings.ToLower(s)]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("shapes: invalid color %q: %w", s, err)
	}
	c = c.Clamped()
	return RGB{float32(c.R), float32(c.G), float32(c.B)}, nil
}

func mustHex(s string) RGB {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return RGB{float32(c.R), float32(c.G), float32(c.B)}
}
