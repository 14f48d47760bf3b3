package sse

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is a single recorded SSE event.
type Event struct {
	// Timing is milliseconds since the body read began.
	Timing int64 `json:"timing"`

	// Event is the SSE event name (event: field).
	Event string `json:"event,omitempty"`

	// ID is the SSE event ID (id: field).
	ID string `json:"id,omitempty"`

	// Data is the SSE data field; multiple data lines are joined with "\n".
	Data string `json:"data,omitempty"`
}

// Delay returns Timing as a duration.
func (e Event) Delay() time.Duration {
	if e.Timing <= 0 {
		return 0
	}
	return time.Duration(e.Timing) * time.Millisecond
}

// IsEmpty reports whether the event carries no fields worth emitting.
func (e Event) IsEmpty() bool {
	return e.Event == "" && e.ID == "" && e.Data == ""
}

// EncodedEventStream is the stored form of a text/event-stream body.
type EncodedEventStream struct {
	Type   string  `json:"$type"`
	Events []Event `json:"events"`
}

// NewEncodedEventStream returns a tagged stream holding the given events.
func NewEncodedEventStream(events ...Event) *EncodedEventStream {
	if events == nil {
		events = []Event{}
	}
	return &EncodedEventStream{Type: TypeTag, Events: events}
}

// Marshal returns the JSON text stored as the response content.
func (s *EncodedEventStream) Marshal() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event stream: %w", err)
	}
	return string(data), nil
}

// Parse decodes stored content text. It returns ErrNotEventStream when the
// text is not JSON or does not carry the event-stream tag.
func Parse(text string) (*EncodedEventStream, error) {
	var s EncodedEventStream
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEventStream, err)
	}
	if s.Type != TypeTag {
		return nil, ErrNotEventStream
	}
	return &s, nil
}
