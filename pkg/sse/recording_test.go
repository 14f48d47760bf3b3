package sse

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func TestStreamRecorder_Encode(t *testing.T) {
	body := ": keepalive\n\n" +
		"event: token\nid: 1\ndata: {\"text\":\"he\"}\n\n" +
		"data: line one\r\ndata: line two\r\n\r\n" +
		"retry: 3000\n\n" +
		"data:trailing"

	clock := &fakeClock{t: time.Unix(0, 0), step: 10 * time.Millisecond}
	rec := &StreamRecorder{Now: clock.Now}

	s, err := rec.Encode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if s.Type != TypeTag {
		t.Errorf("expected type tag %q, got %q", TypeTag, s.Type)
	}

	want := []Event{
		{Timing: 10, Event: "token", ID: "1", Data: `{"text":"he"}`},
		{Timing: 20, Data: "line one\nline two"},
		{Timing: 30, Data: "trailing"},
	}
	if len(s.Events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(s.Events), s.Events)
	}
	for i := range want {
		if s.Events[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, s.Events[i], want[i])
		}
	}
}

func TestStreamRecorder_EmptyBody(t *testing.T) {
	s, err := Encode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(s.Events) != 0 {
		t.Errorf("expected no events, got %d", len(s.Events))
	}
}

func TestStreamRecorder_RecordsArrivalTime(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("data: first\n\n"))
		time.Sleep(30 * time.Millisecond)
		_, _ = pw.Write([]byte("data: second\n\n"))
		_ = pw.Close()
	}()

	s, err := Encode(pr)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(s.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(s.Events))
	}
	if s.Events[1].Timing < 25 {
		t.Errorf("expected second event timing >= 25ms, got %d", s.Events[1].Timing)
	}
	if s.Events[0].Timing > s.Events[1].Timing {
		t.Errorf("timings out of order: %d > %d", s.Events[0].Timing, s.Events[1].Timing)
	}
}

// endlessLine yields 'a' forever and counts how much was consumed.
type endlessLine struct{ read int }

func (e *endlessLine) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'a'
	}
	e.read += len(p)
	return len(p), nil
}

func TestStreamRecorder_OversizedLineStopsEarly(t *testing.T) {
	src := &endlessLine{}
	_, err := Encode(io.MultiReader(strings.NewReader("data: "), src))
	if !errors.Is(err, ErrEventTooLarge) {
		t.Fatalf("expected ErrEventTooLarge, got %v", err)
	}
	if src.read > 2*MaxEventDataSize {
		t.Errorf("read %d bytes before giving up, limit is %d", src.read, MaxEventDataSize)
	}
}

func TestStreamRecorder_LargeLineWithinLimit(t *testing.T) {
	size := MaxEventDataSize / 2
	line := "data: " + strings.Repeat("x", size) + "\n\n"
	s, err := Encode(strings.NewReader(line))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(s.Events) != 1 || len(s.Events[0].Data) != size {
		t.Errorf("expected one full event, got %d", len(s.Events))
	}
}
