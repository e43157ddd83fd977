package automation

import (
	"fmt"
	"math"

	"github.com/san-kum/morphcloud/internal/gesture"
)

// Gesture describes a held pose that is turned into landmarks.
type Gesture struct {
	Hands  int     `yaml:"hands"`
	Pinch  float64 `yaml:"pinch"`  // thumb to index distance, one hand
	Facing float64 `yaml:"facing"` // radians clockwise from up, one hand
	Tilt   float64 `yaml:"tilt"`   // finger bend relative to the palm, one hand
	Spread float64 `yaml:"spread"` // wrist distance, two hands
	Angle  float64 `yaml:"angle"`  // radians of the wrist-to-wrist line, two hands
}

func (g *Gesture) Validate() error {
	if g.Hands < 0 || g.Hands > gesture.MaxHands {
		return fmt.Errorf("hands must be 0..%d, got %d", gesture.MaxHands, g.Hands)
	}
	if g.Pinch < 0 || g.Spread < 0 {
		return fmt.Errorf("pinch and spread must not be negative")
	}
	return nil
}

const (
	palmLength   = 0.15
	fingerLength = 0.1
)

// Landmarks returns the landmark set for g.
func (g *Gesture) Landmarks() []gesture.Hand {
	switch g.Hands {
	case 1:
		return []gesture.Hand{PoseHand(0.5, 0.7, g.Facing, g.Tilt, g.Pinch)}
	case 2:
		dx := g.Spread / 2 * math.Cos(g.Angle)
		dy := g.Spread / 2 * math.Sin(g.Angle)
		return []gesture.Hand{
			PoseHand(0.5-dx, 0.6-dy, 0, 0, 0.1),
			PoseHand(0.5+dx, 0.6+dy, 0, 0, 0.1),
		}
	default:
		return []gesture.Hand{}
	}
}

// PoseHand builds a hand with its wrist at (x, y). facing is the palm
// heading measured clockwise from straight up, tilt bends the middle finger
// against it, and pinch separates the thumb and index tips.
func PoseHand(x, y, facing, tilt, pinch float64) gesture.Hand {
	along := func(from gesture.Landmark, angle, length float64) gesture.Landmark {
		return gesture.Landmark{
			X: from.X + length*math.Sin(angle),
			Y: from.Y - length*math.Cos(angle),
		}
	}

	wrist := gesture.Landmark{X: x, Y: y}
	base := along(wrist, facing, palmLength)
	tip := along(base, facing+tilt, fingerLength)

	h := make(gesture.Hand, gesture.LandmarkCount)
	for i := range h {
		h[i] = base
	}
	h[gesture.Wrist] = wrist
	h[gesture.MiddleBase] = base
	h[gesture.MiddleTip] = tip

	// thumb and index straddle the palm line
	side := facing + math.Pi/2
	h[gesture.ThumbTip] = along(base, side, -pinch/2)
	h[gesture.IndexTip] = along(base, side, pinch/2)
	return h
}
