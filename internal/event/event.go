// Package event is the input model shared by the websocket, the events
// endpoint and the CLI.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Type names an input event.
type Type string

const (
	PointerDown  Type = "pointerdown"
	PointerMove  Type = "pointermove"
	PointerUp    Type = "pointerup"
	PointerLeave Type = "pointerleave"
	Wheel        Type = "wheel"
	TouchStart   Type = "touchstart"
	TouchMove    Type = "touchmove"
	TouchEnd     Type = "touchend"
	Resize       Type = "resize"
	// Command carries a session command such as expand or select.
	Command Type = "command"
)

// Touch is one active touch point.
type Touch struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Event is the canonical input model for all incoming events.
type Event struct {
	ID         string    `json:"id,omitempty"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
	ReceivedAt time.Time `json:"-"`

	// Pointer and wheel position in canvas pixels.
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	DeltaX    float64 `json:"delta_x,omitempty"`
	DeltaY    float64 `json:"delta_y,omitempty"`
	DeltaMode int     `json:"delta_mode,omitempty"`
	Ctrl      bool    `json:"ctrl,omitempty"`
	Meta      bool    `json:"meta,omitempty"`

	// Touches holds the touches still on the surface after the event.
	Touches []Touch `json:"touches,omitempty"`

	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	Command string         `json:"command,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// Validate checks that the fields the type needs are present.
func (e *Event) Validate() error {
	switch e.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave, Wheel, TouchStart, TouchMove, TouchEnd:
		return nil
	case Resize:
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("resize: width and height must be positive, got %gx%g", e.Width, e.Height)
		}
		return nil
	case Command:
		if e.Command == "" {
			return fmt.Errorf("command: name is required")
		}
		return nil
	case "":
		return fmt.Errorf("event type is required")
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

// Decode parses either one event object or an array of them and validates each.
func Decode(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	var events []Event
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("invalid event batch: %w", err)
		}
	} else {
		var e Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("invalid event: %w", err)
		}
		events = []Event{e}
	}
	now := time.Now()
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events[i].ReceivedAt = now
	}
	return events, nil
}

// StringParam returns a string parameter, or "" when absent or not a string.
func (e *Event) StringParam(key string) string {
	s, _ := e.Params[key].(string)
	return s
}

// FloatParam returns a numeric parameter.
func (e *Event) FloatParam(key string) (float64, bool) {
	switch v := e.Params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
