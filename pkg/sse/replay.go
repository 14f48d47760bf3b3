package sse

import (
	"context"
	"io"
	"sync"
	"time"
)

// NewReplayReader returns a body that emits the stream's events in array
// order. Event i becomes due initialDelay + Events[i].Timing after the reader
// is created; due times are measured from that start, never chained from the
// previous emission, so an event whose time has already passed is written as
// soon as its predecessor has been written.
//
// The reader fails with ctx.Err() if ctx ends first. Closing the reader stops
// the producer goroutine.
func NewReplayReader(ctx context.Context, stream *EncodedEventStream, initialDelay time.Duration) io.ReadCloser {
	pr, pw := io.Pipe()
	rr := &replayReader{PipeReader: pr, stop: make(chan struct{})}

	events := append([]Event(nil), stream.Events...)
	start := time.Now()

	go func() {
		for _, ev := range events {
			due := start.Add(initialDelay + ev.Delay())
			if !rr.sleepUntil(ctx, due) {
				if err := ctx.Err(); err != nil {
					_ = pw.CloseWithError(err)
				}
				return
			}

			record := FormatEvent(ev)
			if record == "" {
				continue
			}
			if _, err := pw.Write([]byte(record)); err != nil {
				return
			}
		}
		_ = pw.Close()
	}()

	return rr
}

type replayReader struct {
	*io.PipeReader
	stop chan struct{}
	once sync.Once
}

// sleepUntil blocks until due and reports false if the wait was cut short.
func (r *replayReader) sleepUntil(ctx context.Context, due time.Time) bool {
	wait := time.Until(due)
	if wait <= 0 {
		return true
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (r *replayReader) Close() error {
	r.once.Do(func() { close(r.stop) })
	return r.PipeReader.Close()
}
