package particles

import (
	"errors"
	"fmt"

	"github.com/san-kum/morphcloud/internal/shapes"
)

var (
	// ErrInvalidCount indicates a non-positive particle count.
	ErrInvalidCount = errors.New("particles: particle count must be positive")

	// ErrReleased indicates use of a buffer after Release.
	ErrReleased = errors.New("particles: buffer released")

	// ErrGenerate indicates a shape generator failed; previous targets are kept.
	ErrGenerate = errors.New("particles: shape generation failed")
)

// GenerateError wraps a generator failure with the particle it failed on.
type GenerateError struct {
	Shape shapes.Shape
	Index int
	Cause any
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("particles: generating %s failed at particle %d: %v", e.Shape, e.Index, e.Cause)
}

func (e *GenerateError) Unwrap() error {
	return ErrGenerate
}
