package vcr

import (
	"log/slog"

	"github.com/getmockd/netmock/pkg/logging"
)

// Hooks connects a session to its environment, usually a test runner.
type Hooks interface {
	// TestPath returns the directory that owns the session's archives.
	TestPath() string

	// DefaultSource returns the archive key used when none is configured.
	DefaultSource() string

	// Fail reports a failure without aborting the caller.
	Fail(msg string)

	// Warn reports a non-fatal problem.
	Warn(msg string)

	// Cleanup registers fn to run once when the session's owner finishes.
	Cleanup(fn func())
}

// LogHooks reports through a logger. Cleanup functions are never run, so
// sessions using it must be closed explicitly.
type LogHooks struct {
	Dir    string
	Source string
	Logger *slog.Logger
}

// TestPath implements Hooks.
func (h LogHooks) TestPath() string {
	if h.Dir == "" {
		return "."
	}
	return h.Dir
}

// DefaultSource implements Hooks.
func (h LogHooks) DefaultSource() string { return h.Source }

// Fail implements Hooks.
func (h LogHooks) Fail(msg string) { logging.OrNop(h.Logger).Error(msg) }

// Warn implements Hooks.
func (h LogHooks) Warn(msg string) { logging.OrNop(h.Logger).Warn(msg) }

// Cleanup implements Hooks.
func (LogHooks) Cleanup(func()) {}
