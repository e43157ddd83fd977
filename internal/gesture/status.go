package gesture

import "fmt"

// Status is the tracking state shown to the user.
type Status uint8

const (
	NoHands Status = iota
	Tracking
)

func (s Status) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "no-hands"
}

func statusFor(hands int) Status {
	if hands > 0 {
		return Tracking
	}
	return NoHands
}

// StatusText is the human-readable line for a hand count.
func StatusText(hands int) string {
	switch hands {
	case 0:
		return "No hands detected"
	case 1:
		return "Tracking 1 hand"
	default:
		return fmt.Sprintf("Tracking %d hands", hands)
	}
}
