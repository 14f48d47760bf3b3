package vcr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/netmock/internal/matching"
	"github.com/getmockd/netmock/pkg/archive"
	"github.com/getmockd/netmock/pkg/codec"
	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/har"
	"github.com/getmockd/netmock/pkg/intercept"
	"github.com/getmockd/netmock/pkg/replay"
)

// Session errors
var (
	// ErrUnhandledRequest means a request fell through every strategy.
	ErrUnhandledRequest = errors.New("unhandled request")

	// ErrSessionClosed is returned for requests reaching a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Session replays and records the traffic of one archive key.
type Session struct {
	id     string
	key    string
	opts   Options
	hooks  Hooks
	store  archive.Store
	parent *Context
	logger *slog.Logger

	mu      sync.Mutex
	archive *har.Archive

	// inflight is held for reading while a request is being handled so
	// that Close never races new pending work.
	inflight sync.RWMutex
	pending  errgroup.Group
	remove   func()
	closed   atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Start begins a session reporting to h. Options are resolved against the
// context defaults and the environment and validated before anything is
// intercepted. The archive is loaded in full, or a new one is started if the
// store has none for the key.
func (c *Context) Start(h Hooks, opts Options) (*Session, error) {
	if h == nil {
		h = c.hooks
	}
	resolved, err := config.Resolve(c.env, c.defaults, opts)
	if err != nil {
		return nil, err
	}

	store, err := c.resolveStore(h, opts, resolved)
	if err != nil {
		return nil, err
	}

	key := resolved.ArchiveKey(h.DefaultSource())
	a, err := store.Get(context.Background(), key)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		a = har.New()
	case err != nil:
		return nil, fmt.Errorf("load archive %q: %w", key, err)
	}

	s := &Session{
		id:      uuid.NewString(),
		key:     key,
		opts:    resolved,
		hooks:   h,
		store:   store,
		parent:  c,
		archive: a,
	}
	s.logger = c.logger.With("session", s.id, "key", key)
	s.remove = c.interceptor.On(s.handle)

	h.Cleanup(func() {
		if err := s.Close(); err != nil {
			h.Fail(err.Error())
		}
	})

	s.logger.Info("session started",
		"entries", len(a.Log.Entries),
		"stale", resolved.Stale,
		"noMatch", resolved.NoMatch,
	)
	return s, nil
}

// ID returns the session's unique ID.
func (s *Session) ID() string { return s.id }

// Key returns the archive key.
func (s *Session) Key() string { return s.key }

// Options returns the resolved options.
func (s *Session) Options() Options { return s.opts }

// Entries returns a snapshot of the archive's entries.
func (s *Session) Entries() []har.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]har.Entry(nil), s.archive.Log.Entries...)
}

// RoundTrip answers req through this session only, without consulting other
// interceptor listeners.
func (s *Session) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(codec.PassthroughHeader) != "" {
		return s.parent.interceptor.RoundTrip(req)
	}

	ctl := &intercept.Controller{}
	if err := s.handle(req, ctl); err != nil {
		return nil, err
	}
	if ctl.IsPassthrough() {
		return s.parent.interceptor.RoundTrip(req)
	}
	resp, err := ctl.Result()
	if resp != nil && resp.Request == nil {
		resp.Request = req
	}
	return resp, err
}

// Client returns an http.Client bound to this session.
func (s *Session) Client() *http.Client {
	return &http.Client{Transport: s}
}

// Close detaches the session, waits for in-flight recordings and saves the
// archive. Only the first call does any work; later calls return its result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.inflight.Lock()
		s.closed.Store(true)
		s.inflight.Unlock()
		s.remove()

		if err := s.pending.Wait(); err != nil {
			s.logger.Error("recording failed", "error", err)
		}

		s.mu.Lock()
		a := s.archive.Clone()
		s.mu.Unlock()

		if err := s.store.Save(context.Background(), s.key, a); err != nil {
			s.closeErr = fmt.Errorf("save archive %q: %w", s.key, err)
			return
		}
		s.logger.Info("archive saved", "entries", len(a.Log.Entries))
	})
	return s.closeErr
}

// handle runs one request through the replay/record state machine. Every
// path either answers through ctl or returns an error.
func (s *Session) handle(req *http.Request, ctl *intercept.Controller) error {
	if req.Header.Get(codec.PassthroughHeader) != "" {
		ctl.Passthrough()
		return nil
	}
	s.inflight.RLock()
	defer s.inflight.RUnlock()
	if s.closed.Load() {
		return ErrSessionClosed
	}

	started := s.parent.now()

	body, err := readBody(req)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	// Recording through gzip breaks the teed body, so every request is made
	// (and was recorded) with identity encoding.
	live := withBody(req, body)
	live.Header.Set("Accept-Encoding", "identity")

	encoded, err := codec.EncodeRequest(withBody(live, body), s.opts.IncludeKeys)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	entries := s.Entries()
	idx := matching.Find(entries, live, body, s.opts.IncludeKeys)
	url := live.URL.String()

	if idx >= 0 {
		entry := &entries[idx]
		if !entry.IsStale(started, s.opts.Staleness()) {
			return s.replay(live, entry, ctl)
		}

		msg := staleMessage(url, entry.StartedDateTime)
		s.logger.Info("stale entry matched", "url", url, "age", entry.Age(started).Round(time.Second), "strategy", s.opts.Stale)
		switch s.opts.Stale {
		case config.StaleReject:
			s.reject(ctl, msg)
			return nil
		case config.StaleWarn:
			s.hooks.Warn(msg)
			return s.replay(live, entry, ctl)
		case config.StaleRefetch:
			return s.fetch(live, body, encoded, started, ctl)
		case config.StaleIgnore:
			return s.replay(live, entry, ctl)
		}
	} else {
		msg := noMatchMessage(url, matching.NearestMiss(entries, live, body, s.opts.IncludeKeys))
		s.logger.Info("no entry matched", "method", live.Method, "url", url, "strategy", s.opts.NoMatch)
		switch s.opts.NoMatch {
		case config.NoMatchReject:
			s.reject(ctl, msg)
			return nil
		case config.NoMatchWarn:
			s.hooks.Warn(msg)
			return s.fetch(live, body, encoded, started, ctl)
		case config.NoMatchFetch:
			return s.fetch(live, body, encoded, started, ctl)
		}
	}

	s.logger.Error("request fell through every strategy", "method", live.Method, "url", url)
	return fmt.Errorf("%w: %s %s", ErrUnhandledRequest, live.Method, url)
}

func (s *Session) replay(req *http.Request, entry *har.Entry, ctl *intercept.Controller) error {
	resp, err := replay.Response(req, entry, s.opts.Timings())
	if err != nil {
		return err
	}
	s.logger.Debug("replayed", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	ctl.RespondWith(resp)
	return nil
}

func (s *Session) reject(ctl *intercept.Controller, msg string) {
	s.hooks.Fail(msg)
	ctl.RespondWith(&http.Response{
		Status:        "400 Bad Request",
		StatusCode:    http.StatusBadRequest,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(msg)),
		ContentLength: int64(len(msg)),
	})
}

// fetch performs the real request and answers with the live response. The
// body reaches the caller through a pipe while a pending task encodes it
// and appends the entry.
func (s *Session) fetch(live *http.Request, body []byte, encoded har.Request, started time.Time, ctl *intercept.Controller) error {
	out := withBody(live, body)
	out.RequestURI = ""
	out.Header.Set(codec.PassthroughHeader, "1")

	resp, err := s.parent.interceptor.RoundTrip(out)
	if err != nil {
		s.logger.Warn("fetch failed", "url", live.URL.String(), "error", err)
		ctl.RespondWithError(err)
		return nil
	}
	headersAt := s.parent.now()
	s.logger.Info("fetched", "method", live.Method, "url", live.URL.String(), "status", resp.StatusCode)

	upstream := resp.Body
	pr, pw := io.Pipe()
	recorded := *resp
	src := &upstreamReader{r: upstream}
	recorded.Body = io.NopCloser(io.TeeReader(src, forwardWriter{pw}))
	resp.Body = pr

	s.pending.Go(func() error {
		defer upstream.Close()

		encodedResp, err := codec.EncodeResponse(&recorded, s.opts.IncludeKeys)
		if err != nil && src.err == nil {
			// Recording gave up but the caller still gets the rest of the body.
			_, _ = io.Copy(forwardWriter{pw}, src)
		}
		// Only upstream read failures reach the caller.
		_ = pw.CloseWithError(src.err)
		if err != nil {
			s.hooks.Warn(fmt.Sprintf("failed to record %s %s: %v", live.Method, live.URL, err))
			return fmt.Errorf("encode response for %s: %w", live.URL, err)
		}

		done := s.parent.now()
		entry := har.Entry{
			StartedDateTime: started,
			Time:            har.Milliseconds(done.Sub(started)),
			Request:         encoded,
			Response:        encodedResp,
			Timings: har.Timings{
				Send:    0,
				Wait:    har.Milliseconds(headersAt.Sub(started)),
				Receive: har.Milliseconds(done.Sub(headersAt)),
			},
		}

		s.mu.Lock()
		s.archive.Log.Entries = append(s.archive.Log.Entries, entry)
		s.mu.Unlock()

		s.logger.Debug("recorded", "method", live.Method, "url", live.URL.String(), "status", encodedResp.Status)
		return nil
	})

	ctl.RespondWith(resp)
	return nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// withBody clones req with a fresh reader over body.
func withBody(req *http.Request, body []byte) *http.Request {
	r := req.Clone(req.Context())
	if body == nil {
		r.Body = http.NoBody
		r.ContentLength = 0
		r.GetBody = nil
		return r
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.ContentLength = int64(len(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return r
}

// forwardWriter feeds the caller's end of the pipe. Once the caller stops
// reading, writes are dropped so that recording can finish.
type forwardWriter struct {
	pw *io.PipeWriter
}

func (w forwardWriter) Write(p []byte) (int, error) {
	_, _ = w.pw.Write(p)
	return len(p), nil
}

// upstreamReader remembers the first non-EOF read error of the live body.
type upstreamReader struct {
	r   io.Reader
	err error
}

func (u *upstreamReader) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && u.err == nil {
		u.err = err
	}
	return n, err
}
