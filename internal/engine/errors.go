package engine

import "errors"

var (
	// ErrDisposed indicates a call on an engine after Dispose.
	ErrDisposed = errors.New("engine: disposed")

	// ErrContextLost is returned by renderers whose graphics context is gone.
	// The engine treats it as fatal.
	ErrContextLost = errors.New("engine: rendering context lost")

	// ErrRunning indicates Start on an engine whose loop is already running.
	ErrRunning = errors.New("engine: loop already running")

	// ErrInvalidConfig indicates a configuration the engine refuses.
	ErrInvalidConfig = errors.New("engine: invalid configuration")
)
