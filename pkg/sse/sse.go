// Package sse records Server-Sent Events bodies into a timed, JSON-serializable
// form and replays them with their original pacing.
//
// A recorded stream is stored as an EncodedEventStream:
//
//	{"$type":"event-stream","events":[{"timing":12,"event":"token","data":"hi"}]}
//
// where timing is the number of milliseconds between the start of the body
// read and the moment the event was dispatched.
package sse

import (
	"errors"
	"strings"
)

// SSE-related constants per W3C specification
const (
	// ContentTypeEventStream is the MIME type for SSE responses
	ContentTypeEventStream = "text/event-stream"

	// TypeTag is the discriminator stored in EncodedEventStream.Type
	TypeTag = "event-stream"

	// MaxEventDataSize is the maximum size of a single recorded event in bytes
	MaxEventDataSize = 1 << 20 // 1MB
)

// SSE field prefixes per W3C specification
const (
	fieldEvent   = "event:"
	fieldData    = "data:"
	fieldID      = "id:"
	fieldComment = ":"
)

// Errors
var (
	// ErrNotEventStream indicates stored text is not an encoded event stream
	ErrNotEventStream = errors.New("sse: not an encoded event stream")

	// ErrEventTooLarge indicates a line exceeded MaxEventDataSize while recording
	ErrEventTooLarge = errors.New("sse: event data too large")
)

// IsEventStream reports whether a content-type header value denotes an SSE body.
func IsEventStream(contentType string) bool {
	return strings.Contains(contentType, ContentTypeEventStream)
}
