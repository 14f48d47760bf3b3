package sse

import (
	"testing"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "data_only",
			event: Event{Data: "Hello, World!"},
			want:  "data:Hello, World!\n\n",
		},
		{
			name:  "multiline_data",
			event: Event{Data: "Line 1\nLine 2"},
			want:  "data:Line 1\ndata:Line 2\n\n",
		},
		{
			name:  "all_fields_in_data_event_id_order",
			event: Event{Data: "{\"x\":1}", Event: "token", ID: "7"},
			want:  "data:{\"x\":1}\nevent:token\nid:7\n\n",
		},
		{
			name:  "newlines_stripped_from_id",
			event: Event{ID: "a\nb"},
			want:  "id:ab\n\n",
		},
		{
			name:  "empty_event_renders_nothing",
			event: Event{Timing: 40},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatEvent(tt.event); got != tt.want {
				t.Errorf("FormatEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatStream(t *testing.T) {
	s := NewEncodedEventStream(Event{Data: "a"}, Event{}, Event{Data: "b", Event: "end"})

	want := "data:a\n\ndata:b\nevent:end\n\n"
	if got := FormatStream(s); got != want {
		t.Errorf("FormatStream() = %q, want %q", got, want)
	}
}

func TestParse(t *testing.T) {
	t.Run("valid_stream", func(t *testing.T) {
		s, err := Parse(`{"$type":"event-stream","events":[{"timing":5,"data":"x"}]}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Events) != 1 || s.Events[0].Timing != 5 || s.Events[0].Data != "x" {
			t.Errorf("unexpected events: %+v", s.Events)
		}
	})

	t.Run("wrong_tag", func(t *testing.T) {
		if _, err := Parse(`{"$type":"other","events":[]}`); err != ErrNotEventStream {
			t.Errorf("expected ErrNotEventStream, got %v", err)
		}
	})

	t.Run("not_json", func(t *testing.T) {
		if _, err := Parse("data: hello\n\n"); err == nil {
			t.Error("expected error for non-JSON text")
		}
	})
}

func TestEncodedEventStream_MarshalRoundTrip(t *testing.T) {
	in := NewEncodedEventStream(Event{Timing: 3, Event: "message", ID: "1", Data: "hi"})

	text, err := in.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"$type":"event-stream","events":[{"timing":3,"event":"message","id":"1","data":"hi"}]}`
	if text != want {
		t.Errorf("Marshal() = %s, want %s", text, want)
	}

	out, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if out.Events[0] != in.Events[0] {
		t.Errorf("round trip mismatch: %+v vs %+v", out.Events[0], in.Events[0])
	}
}

func TestIsEventStream(t *testing.T) {
	if !IsEventStream("text/event-stream; charset=utf-8") {
		t.Error("expected parameterized event-stream type to match")
	}
	if IsEventStream("application/json") {
		t.Error("expected application/json not to match")
	}
}
