package testing

import (
	"testing"

	"github.com/getmockd/netmock/pkg/vcr"
)

// Hooks adapts t to vcr.Hooks. Failures are reported with t.Errorf so the
// request path never stops the test goroutine.
func Hooks(t testing.TB) vcr.Hooks {
	return &testHooks{t: t}
}

type testHooks struct {
	t testing.TB
}

// TestPath is the package directory, where go test runs.
func (h *testHooks) TestPath() string { return "." }

func (h *testHooks) DefaultSource() string { return h.t.Name() }

func (h *testHooks) Fail(msg string) {
	h.t.Helper()
	h.t.Errorf("%s", msg)
}

func (h *testHooks) Warn(msg string) {
	h.t.Helper()
	h.t.Logf("netmock warning: %s", msg)
}

func (h *testHooks) Cleanup(fn func()) { h.t.Cleanup(fn) }

// Record starts a session for the current test. The archive is saved when
// the test finishes. Invalid options fail the test immediately.
func Record(t testing.TB, nm *vcr.Context, opts vcr.Options) *vcr.Session {
	t.Helper()

	s, err := nm.Start(Hooks(t), opts)
	if err != nil {
		t.Fatalf("failed to start netmock session: %v", err)
	}
	return s
}

// NewContext creates a context that is closed when t finishes. It suits
// tests that need their own transport or store; most packages share one
// context from TestMain instead.
func NewContext(t testing.TB, opts vcr.ContextOptions) *vcr.Context {
	t.Helper()

	nm, err := vcr.NewContext(opts)
	if err != nil {
		t.Fatalf("failed to create netmock context: %v", err)
	}
	t.Cleanup(func() { _ = nm.Close() })
	return nm
}
