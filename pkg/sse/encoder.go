package sse

import (
	"strings"
)

// FormatEvent renders a recorded event as an SSE record: data, event and id
// lines followed by the blank line that dispatches the event. Events without
// any fields render as the empty string.
func FormatEvent(event Event) string {
	if event.IsEmpty() {
		return ""
	}

	var sb strings.Builder

	// Split multiline data into multiple data: fields
	if event.Data != "" {
		for _, line := range strings.Split(event.Data, "\n") {
			sb.WriteString(fieldData)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	if event.Event != "" {
		sb.WriteString(fieldEvent)
		sb.WriteString(stripNewlines(event.Event))
		sb.WriteByte('\n')
	}

	if event.ID != "" {
		sb.WriteString(fieldID)
		sb.WriteString(stripNewlines(event.ID))
		sb.WriteByte('\n')
	}

	// End with blank line to dispatch the event
	sb.WriteByte('\n')
	return sb.String()
}

// FormatStream renders every event of a stream back to back, without timing.
func FormatStream(s *EncodedEventStream) string {
	var sb strings.Builder
	for _, ev := range s.Events {
		sb.WriteString(FormatEvent(ev))
	}
	return sb.String()
}

// event and id values cannot span lines on the wire.
func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
