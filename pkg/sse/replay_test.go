package sse

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestNewReplayReader_PreservesArrayOrder(t *testing.T) {
	stream := NewEncodedEventStream(
		Event{Timing: 10, Data: "first"},
		Event{Timing: 5, Data: "second"},
		Event{Timing: 20, Data: "third"},
	)

	start := time.Now()
	body, err := io.ReadAll(NewReplayReader(context.Background(), stream, 0))
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}

	want := "data:first\n\ndata:second\n\ndata:third\n\n"
	if string(body) != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if elapsed < 20*time.Millisecond {
		t.Errorf("expected replay to take at least 20ms, took %v", elapsed)
	}
}

func TestNewReplayReader_DelaysAreNotCumulative(t *testing.T) {
	stream := NewEncodedEventStream(
		Event{Timing: 30, Data: "a"},
		Event{Timing: 30, Data: "b"},
		Event{Timing: 30, Data: "c"},
	)

	start := time.Now()
	if _, err := io.ReadAll(NewReplayReader(context.Background(), stream, 0)); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	// Chained delays would take 90ms.
	if elapsed := time.Since(start); elapsed > 80*time.Millisecond {
		t.Errorf("expected delays measured from stream start, took %v", elapsed)
	}
}

func TestNewReplayReader_TimingsSurviveReRecording(t *testing.T) {
	stream := NewEncodedEventStream(
		Event{Timing: 0, Data: "a"},
		Event{Timing: 40, Data: "b"},
	)

	got, err := Encode(NewReplayReader(context.Background(), stream, 0))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(got.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got.Events))
	}
	if got.Events[1].Timing < 35 {
		t.Errorf("expected second event near 40ms, got %dms", got.Events[1].Timing)
	}
}

func TestNewReplayReader_InitialDelay(t *testing.T) {
	stream := NewEncodedEventStream(Event{Data: "only"})

	start := time.Now()
	if _, err := io.ReadAll(NewReplayReader(context.Background(), stream, 25*time.Millisecond)); err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("expected initial delay of 25ms, took %v", elapsed)
	}
}

func TestNewReplayReader_ContextCancel(t *testing.T) {
	stream := NewEncodedEventStream(Event{Timing: 5000, Data: "late"})

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReplayReader(ctx, stream, 0)
	cancel()

	_, err := io.ReadAll(r)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewReplayReader_CloseStopsProducer(t *testing.T) {
	stream := NewEncodedEventStream(Event{Timing: 5000, Data: "late"})

	r := NewReplayReader(context.Background(), stream, 0)
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := r.Read(make([]byte, 8)); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected io.ErrClosedPipe after Close, got %v", err)
	}
}

func TestNewReplayReader_EmptyStream(t *testing.T) {
	body, err := io.ReadAll(NewReplayReader(context.Background(), NewEncodedEventStream(), time.Hour))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(body) != 0 {
		t.Errorf("expected empty body, got %q", body)
	}
}
