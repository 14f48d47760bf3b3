package sse

import (
	"bufio"
	"errors"
	"io"
	"math"
	"strings"
	"time"
)

// StreamRecorder drains a live SSE body and captures each dispatched event
// together with its arrival time relative to the start of the read.
type StreamRecorder struct {
	// Now is the clock used for event timings. Defaults to time.Now.
	Now func() time.Time
}

// NewStreamRecorder creates a recorder using the wall clock.
func NewStreamRecorder() *StreamRecorder {
	return &StreamRecorder{Now: time.Now}
}

// Encode records the body with the wall clock.
func Encode(r io.Reader) (*EncodedEventStream, error) {
	return NewStreamRecorder().Encode(r)
}

// Encode reads r to EOF and returns the recorded events in arrival order.
// A trailing event without a terminating blank line is still recorded.
func (rec *StreamRecorder) Encode(r io.Reader) (*EncodedEventStream, error) {
	now := rec.Now
	if now == nil {
		now = time.Now
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxEventDataSize)
	start := now()
	stream := NewEncodedEventStream()

	var (
		current Event
		data    []string
		pending bool
	)

	dispatch := func() {
		if !pending {
			return
		}
		current.Data = strings.Join(data, "\n")
		current.Timing = roundMillis(now().Sub(start))
		stream.Events = append(stream.Events, current)
		current, data, pending = Event{}, nil, false
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			dispatch()
			continue
		}
		pending = applyField(&current, &data, line) || pending
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, ErrEventTooLarge
		}
		return nil, err
	}
	dispatch()
	return stream, nil
}

// applyField applies one non-blank SSE line to the event under construction.
// It returns true if the line contributed a field.
func applyField(ev *Event, data *[]string, line string) bool {
	if strings.HasPrefix(line, fieldComment) {
		return false
	}

	name, value, found := strings.Cut(line, ":")
	if found {
		value = strings.TrimPrefix(value, " ")
	}

	switch name {
	case "data":
		*data = append(*data, value)
	case "event":
		ev.Event = value
	case "id":
		ev.ID = value
	default:
		// retry and unknown fields are not replayed
		return false
	}
	return true
}

func roundMillis(d time.Duration) int64 {
	return int64(math.Round(float64(d) / float64(time.Millisecond)))
}
