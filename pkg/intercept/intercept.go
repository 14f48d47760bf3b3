// Package intercept provides an http.RoundTripper that lets listeners answer
// outbound requests before they reach the network.
//
// An Interceptor can be used explicitly as a client transport or installed
// process-wide with Apply, which swaps http.DefaultTransport. Listeners are
// consulted in registration order; the first one that responds, fails or
// passes the request through decides the outcome. Requests nobody handles
// go to the base transport.
//
// Requests carrying the bypass header skip every listener. The header is
// stripped before the request is sent, which lets a listener issue the real
// request through the same interceptor without looping.
package intercept

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// ErrListener wraps errors returned by listeners.
var ErrListener = errors.New("intercept listener failed")

// Listener inspects a request and decides its outcome through ctl. The
// request body may be consumed. Returning an error fails the round trip.
type Listener func(req *http.Request, ctl *Controller) error

// Controller records how a listener handled a request.
type Controller struct {
	resp        *http.Response
	err         error
	passthrough bool
	handled     bool
}

// RespondWith answers the request with resp.
func (c *Controller) RespondWith(resp *http.Response) {
	c.resp, c.handled = resp, true
}

// RespondWithError fails the request with err, as a network error would.
func (c *Controller) RespondWithError(err error) {
	c.err, c.handled = err, true
}

// Passthrough sends the request to the base transport untouched by any
// further listener.
func (c *Controller) Passthrough() {
	c.passthrough, c.handled = true, true
}

// Handled reports whether the listener decided the outcome.
func (c *Controller) Handled() bool {
	return c.handled
}

// Result returns the response and error the controller was given.
func (c *Controller) Result() (*http.Response, error) {
	return c.resp, c.err
}

// IsPassthrough reports whether Passthrough was called.
func (c *Controller) IsPassthrough() bool {
	return c.passthrough
}

type listener struct {
	id int
	fn Listener
}

// Interceptor is an http.RoundTripper that dispatches requests to listeners.
type Interceptor struct {
	base         http.RoundTripper
	bypassHeader string

	mu        sync.RWMutex
	listeners []listener
	nextID    int

	applyMu  sync.Mutex
	previous http.RoundTripper
	applied  bool
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithBase sets the transport used for unhandled and passed-through requests.
func WithBase(rt http.RoundTripper) Option {
	return func(i *Interceptor) { i.base = rt }
}

// WithBypassHeader sets the header that marks requests listeners must not see.
func WithBypassHeader(name string) Option {
	return func(i *Interceptor) { i.bypassHeader = name }
}

// New creates an interceptor. Without WithBase it sends real requests
// through the http.DefaultTransport in effect at construction time.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{}
	for _, opt := range opts {
		opt(i)
	}
	if i.base == nil {
		i.base = http.DefaultTransport
	}
	return i
}

// On registers a listener and returns a function that removes it.
func (i *Interceptor) On(fn Listener) (remove func()) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.nextID++
	id := i.nextID
	i.listeners = append(i.listeners, listener{id: id, fn: fn})

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for n, l := range i.listeners {
			if l.id == id {
				i.listeners = append(i.listeners[:n:n], i.listeners[n+1:]...)
				return
			}
		}
	}
}

// RemoveAllListeners drops every registered listener.
func (i *Interceptor) RemoveAllListeners() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.listeners = nil
}

// ListenerCount returns the number of registered listeners.
func (i *Interceptor) ListenerCount() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.listeners)
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if i.bypassHeader != "" && req.Header.Get(i.bypassHeader) != "" {
		out := req.Clone(req.Context())
		out.Header.Del(i.bypassHeader)
		return i.base.RoundTrip(out)
	}

	i.mu.RLock()
	listeners := append([]listener(nil), i.listeners...)
	i.mu.RUnlock()

	for _, l := range listeners {
		ctl := &Controller{}
		if err := l.fn(req, ctl); err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, fmt.Errorf("%w: %w", ErrListener, err)
		}
		if !ctl.handled {
			continue
		}
		if ctl.passthrough {
			break
		}
		if ctl.err != nil {
			return nil, ctl.err
		}
		if ctl.resp.Request == nil {
			ctl.resp.Request = req
		}
		return ctl.resp, nil
	}

	return i.base.RoundTrip(req)
}

// Client returns an http.Client that uses the interceptor as its transport.
func (i *Interceptor) Client() *http.Client {
	return &http.Client{Transport: i}
}

// Apply installs the interceptor as http.DefaultTransport. It is a no-op if
// already applied.
func (i *Interceptor) Apply() {
	i.applyMu.Lock()
	defer i.applyMu.Unlock()
	if i.applied {
		return
	}
	i.previous = http.DefaultTransport
	http.DefaultTransport = i
	i.applied = true
}

// Dispose restores the transport replaced by Apply and drops all listeners.
func (i *Interceptor) Dispose() {
	i.applyMu.Lock()
	if i.applied {
		http.DefaultTransport = i.previous
		i.previous = nil
		i.applied = false
	}
	i.applyMu.Unlock()

	i.RemoveAllListeners()
}
