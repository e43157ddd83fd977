package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// LandmarkCount is the number of points per hand.
const LandmarkCount = 21

// Landmark indices used by the mapper.
const (
	Wrist      = 0
	ThumbTip   = 4
	IndexTip   = 8
	MiddleBase = 9
	MiddleTip  = 12
)

// MaxHands is the largest hand count a result may carry.
const MaxHands = 2

var (
	// ErrMalformed indicates a result the mapper refuses to use.
	ErrMalformed = errors.New("gesture: malformed landmark result")
)

// Landmark is a normalized point: x and y in [0,1] image space, z relative depth.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (l Landmark) finite() bool {
	return isFinite(l.X) && isFinite(l.Y) && isFinite(l.Z)
}

// Hand is one tracked hand.
type Hand []Landmark

// Result is one recognizer callback.
type Result struct {
	Hands []Hand    `json:"hands"`
	At    time.Time `json:"at,omitempty"`
}

// Validate checks hand and landmark counts and rejects non-finite values.
func (r Result) Validate() error {
	if len(r.Hands) > MaxHands {
		return fmt.Errorf("%w: %d hands", ErrMalformed, len(r.Hands))
	}
	for h, hand := range r.Hands {
		if len(hand) != LandmarkCount {
			return fmt.Errorf("%w: hand %d has %d landmarks", ErrMalformed, h, len(hand))
		}
		for i, l := range hand {
			if !l.finite() {
				return fmt.Errorf("%w: hand %d landmark %d not finite", ErrMalformed, h, i)
			}
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func dist(a, b Landmark) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// heading is the image-plane angle of a→b measured from straight up,
// positive clockwise. Image y grows downward.
func heading(a, b Landmark) float64 {
	return math.Atan2(b.X-a.X, -(b.Y - a.Y))
}

// wrapAngle maps a into (-π, π].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
