// Package source feeds landmark results and commands into an engine.
//
// Two sources exist: a WebSocket [Server] for a live recognizer (usually a
// browser page running the hand tracker) and a [Replay] of a recorded
// session.
package source

import (
	"context"

	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/shapes"
)

// Sink receives what sources produce. *engine.Engine satisfies it.
type Sink interface {
	HandleLandmarks(r gesture.Result) error
	SwitchShapeByName(name string) (shapes.Shape, error)
	SetColorHex(s string) error
}

// Source runs until ctx is done or its input ends.
type Source interface {
	Run(ctx context.Context, sink Sink) error
}

// Message types on the wire.
const (
	TypeLandmarks = "landmarks"
	TypeShape     = "shape"
	TypeColor     = "color"
	TypeStatus    = "status"
	TypeError     = "error"
)

// Message is the JSON envelope exchanged with clients.
type Message struct {
	Type   string         `json:"type"`
	Hands  []gesture.Hand `json:"hands,omitempty"`
	Shape  string         `json:"shape,omitempty"`
	Color  string         `json:"color,omitempty"`
	Status string         `json:"status,omitempty"`
	Count  int            `json:"count,omitempty"`
	Text   string         `json:"text,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Recorder observes every landmark result a source delivers.
type Recorder interface {
	RecordFrame(r gesture.Result) error
}
