// Package replay rebuilds live HTTP responses from recorded archive entries.
package replay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getmockd/netmock/pkg/codec"
	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/sse"
)

// Body returns the recorded response body of entry as a stream.
//
// With useTimings, event-stream responses are rendered back into SSE
// records and re-emitted event by event on their recorded schedule, and any
// other body is held back for the recorded receive phase. Without it the
// stored text is emitted unchanged and at once. An empty body always closes
// at once.
func Body(ctx context.Context, entry *har.Entry, useTimings bool) (io.ReadCloser, error) {
	content := entry.Response.Content
	if content.Text == "" {
		return http.NoBody, nil
	}

	if useTimings && sse.IsEventStream(entry.Response.ContentType()) {
		if stream, err := sse.Parse(content.Text); err == nil {
			return sse.NewReplayReader(ctx, stream, entry.Timings.WaitDuration()), nil
		}
	}

	data, err := codec.DecodeContent(content)
	if err != nil {
		return nil, err
	}

	var delay time.Duration
	if useTimings {
		delay = entry.Timings.ReceiveDuration()
	}
	return &delayedReader{ctx: ctx, delay: delay, r: bytes.NewReader(data)}, nil
}

// Response builds the response to req from entry. Headers are restored as
// recorded, so redacted values stay redacted.
func Response(req *http.Request, entry *har.Entry, useTimings bool) (*http.Response, error) {
	body, err := Body(req.Context(), entry, useTimings)
	if err != nil {
		return nil, fmt.Errorf("failed to replay %s %s: %w", entry.Request.Method, entry.Request.URL, err)
	}

	rec := &entry.Response
	resp := &http.Response{
		Status:        statusLine(rec),
		StatusCode:    rec.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        make(http.Header, len(rec.Headers)),
		Body:          body,
		ContentLength: -1,
		Request:       req,
	}
	for _, h := range rec.Headers {
		if strings.EqualFold(h.Name, "content-length") {
			if _, err := strconv.ParseInt(h.Value, 10, 64); err != nil {
				continue
			}
		}
		resp.Header.Add(h.Name, h.Value)
	}
	return resp, nil
}

func statusLine(r *har.Response) string {
	text := r.StatusText
	if text == "" {
		text = http.StatusText(r.Status)
	}
	return strconv.Itoa(r.Status) + " " + text
}

// delayedReader withholds its contents until delay has elapsed since the
// first Read.
type delayedReader struct {
	ctx    context.Context
	delay  time.Duration
	r      io.Reader
	waited bool
}

func (d *delayedReader) Read(p []byte) (int, error) {
	if !d.waited {
		d.waited = true
		if d.delay > 0 {
			timer := time.NewTimer(d.delay)
			select {
			case <-d.ctx.Done():
				timer.Stop()
				return 0, d.ctx.Err()
			case <-timer.C:
			}
		}
	}
	return d.r.Read(p)
}

func (d *delayedReader) Close() error {
	return nil
}
