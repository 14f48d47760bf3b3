package vcr

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/getmockd/netmock/pkg/archive"
	"github.com/getmockd/netmock/pkg/codec"
	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/intercept"
	"github.com/getmockd/netmock/pkg/logging"
)

// Options tunes a single session.
type Options = config.Options

// DefaultArchiveDir is where archives go, relative to Hooks.TestPath, when
// no store is configured.
const DefaultArchiveDir = "testdata/netmock"

// ContextOptions configures a Context.
type ContextOptions struct {
	// Hooks are used by sessions started with VCR. Defaults to LogHooks.
	Hooks Hooks

	// Defaults apply to every session, above the environment.
	Defaults Options

	// Store overrides the store derived from the environment and hooks.
	Store archive.Store

	// Transport performs real requests. Defaults to http.DefaultTransport.
	Transport http.RoundTripper

	// Env looks up MOCKS_* variables. Defaults to the process environment
	// plus an optional .env file.
	Env func(string) (string, bool)

	// Global installs the interceptor as http.DefaultTransport.
	Global bool

	Logger *slog.Logger

	// Now is the clock used for staleness and timestamps.
	Now func() time.Time
}

// Context is the process-wide coordinator shared by all sessions.
type Context struct {
	hooks       Hooks
	env         Options
	defaults    Options
	store       archive.Store
	interceptor *intercept.Interceptor
	logger      *slog.Logger
	now         func() time.Time
	global      bool

	mu     sync.Mutex
	stores map[string]archive.Store
}

// NewContext builds a context. Invalid environment or default options are
// reported here, before any request can be intercepted.
func NewContext(opts ContextOptions) (*Context, error) {
	var env Options
	var err error
	if opts.Env != nil {
		env, err = config.FromEnv(opts.Env)
	} else {
		env, err = config.LoadEnv()
	}
	if err != nil {
		return nil, err
	}
	if _, err := config.Resolve(env, opts.Defaults); err != nil {
		return nil, err
	}

	c := &Context{
		hooks:    opts.Hooks,
		env:      env,
		defaults: opts.Defaults,
		store:    opts.Store,
		logger:   logging.OrNop(opts.Logger),
		now:      opts.Now,
		global:   opts.Global,
		stores:   make(map[string]archive.Store),
	}
	if c.hooks == nil {
		c.hooks = LogHooks{Logger: c.logger}
	}
	if c.now == nil {
		c.now = time.Now
	}

	iopts := []intercept.Option{intercept.WithBypassHeader(codec.PassthroughHeader)}
	if opts.Transport != nil {
		iopts = append(iopts, intercept.WithBase(opts.Transport))
	}
	c.interceptor = intercept.New(iopts...)
	if c.global {
		c.interceptor.Apply()
	}
	return c, nil
}

// Interceptor returns the context's interceptor.
func (c *Context) Interceptor() *intercept.Interceptor {
	return c.interceptor
}

// Client returns an http.Client routed through the interceptor.
func (c *Context) Client() *http.Client {
	return c.interceptor.Client()
}

// VCR starts a session using the context's hooks.
func (c *Context) VCR(opts Options) (*Session, error) {
	return c.Start(c.hooks, opts)
}

// Close detaches the interceptor and closes stores the context opened.
func (c *Context) Close() error {
	c.interceptor.Dispose()

	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for spec, s := range c.stores {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close store %s: %w", spec, err))
			}
		}
		delete(c.stores, spec)
	}
	return errors.Join(errs...)
}

// resolveStore picks the store for a session: an explicit call-site spec,
// then the context's store, then the spec from defaults or the environment,
// then a file store under the hooks' test path.
func (c *Context) resolveStore(h Hooks, call, resolved Options) (archive.Store, error) {
	switch {
	case call.Store != "":
		return c.openStore(call.Store)
	case c.store != nil:
		return c.store, nil
	case resolved.Store != "":
		return c.openStore(resolved.Store)
	}
	return c.openStore("file:" + filepath.Join(h.TestPath(), filepath.FromSlash(DefaultArchiveDir)))
}

func (c *Context) openStore(spec string) (archive.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.stores[spec]; ok {
		return s, nil
	}
	s, err := archive.Open(spec)
	if err != nil {
		return nil, fmt.Errorf("open archive store %q: %w", spec, err)
	}
	c.stores[spec] = s
	return s, nil
}
