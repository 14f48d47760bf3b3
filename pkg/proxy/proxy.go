// Package proxy serves recorded traffic to clients that cannot be handed an
// http.Client: anything that honours HTTP_PROXY, or any client pointed at a
// reverse-proxy address.
package proxy

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/getmockd/netmock/pkg/logging"
)

// Options configures proxy behavior.
type Options struct {
	// Session answers every request in Scope. Usually a *vcr.Session.
	Session http.RoundTripper

	// Passthrough carries requests outside Scope. Defaults to
	// http.DefaultTransport.
	Passthrough http.RoundTripper

	// Scope selects the traffic that goes through Session. Nil selects all.
	Scope *Scope

	// Target makes the proxy a reverse proxy: every request is sent to this
	// origin instead of the one in the request line.
	Target *url.URL

	Logger *slog.Logger
}

// Proxy is an HTTP handler that forwards requests through a recording session.
type Proxy struct {
	mu          sync.RWMutex
	session     http.RoundTripper
	passthrough http.RoundTripper
	scope       *Scope
	target      *url.URL
	logger      *slog.Logger
}

// New creates a new Proxy with the given options.
func New(opts Options) *Proxy {
	passthrough := opts.Passthrough
	if passthrough == nil {
		passthrough = http.DefaultTransport
	}

	session := opts.Session
	if session == nil {
		session = passthrough
	}

	return &Proxy{
		session:     session,
		passthrough: passthrough,
		scope:       opts.Scope,
		target:      opts.Target,
		logger:      logging.OrNop(opts.Logger).With("component", "proxy"),
	}
}

// Scope returns the current recording scope. Nil means everything.
func (p *Proxy) Scope() *Scope {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.scope
}

// SetScope swaps the recording scope for subsequent requests.
func (p *Proxy) SetScope(scope *Scope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scope = scope
}

// Target returns the reverse-proxy origin, or nil in forward mode.
func (p *Proxy) Target() *url.URL {
	return p.target
}

// ServeHTTP implements http.Handler for the proxy.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
		return
	}
	p.handleHTTP(w, r)
}
