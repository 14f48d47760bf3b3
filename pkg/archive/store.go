// Package archive persists recorded archives by key.
//
// Three backends are provided:
//   - FileStore: one pretty-printed HAR file per key in a directory
//   - SQLiteStore: every archive as a row in an embedded SQLite database
//   - MemoryStore: a process-local map, mostly for tests
//
// Keys are opaque strings chosen by the caller, typically a test name.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/netmock/pkg/har"
)

// Common errors
var (
	// ErrNotFound is returned by Get when no archive is stored under the key.
	ErrNotFound = errors.New("archive not found")

	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid archive key")

	// ErrUnknownBackend is returned by Open for unrecognized store specs.
	ErrUnknownBackend = errors.New("unknown archive backend")
)

// Store loads and saves archives by key.
type Store interface {
	// Get returns the archive stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (*har.Archive, error)

	// Save replaces whatever is stored under key with a.
	Save(ctx context.Context, key string, a *har.Archive) error
}

// Lister is implemented by stores that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}

var (
	_ Lister = (*FileStore)(nil)
	_ Lister = (*MemoryStore)(nil)
	_ Lister = (*SQLiteStore)(nil)
)

// Backend identifies a storage backend.
type Backend string

const (
	// BackendFile stores one HAR file per key.
	BackendFile Backend = "file"
	// BackendSQLite stores archives in an embedded SQLite database.
	BackendSQLite Backend = "sqlite"
	// BackendMemory keeps archives in memory (no persistence).
	BackendMemory Backend = "memory"
)

// Open creates a store from a spec of the form "<backend>:<location>":
//
//	file:testdata/netmock
//	sqlite:/tmp/archives.db
//	memory:
//
// A spec without a known backend prefix is treated as a file directory.
// Stores that hold resources implement io.Closer.
func Open(spec string) (Store, error) {
	backend, location, ok := strings.Cut(spec, ":")
	if !ok {
		return NewFileStore(spec), nil
	}

	switch Backend(backend) {
	case BackendFile:
		return NewFileStore(location), nil
	case BackendSQLite:
		return OpenSQLite(location)
	case BackendMemory:
		return NewMemoryStore(), nil
	}

	// Windows drive letters and similar paths carry a colon too.
	if len(backend) <= 1 {
		return NewFileStore(spec), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	return nil
}
