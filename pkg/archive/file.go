package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/netmock/pkg/har"
)

// FileExt is appended to every archive file written by FileStore.
const FileExt = ".har"

// FileStore keeps each archive as a pretty-printed JSON file named after
// its key. Writes go through a temp file and rename so that readers never
// see a partially written archive.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file an archive with the given key is stored in.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, FileName(key))
}

// FileName maps a key to a filesystem-safe file name. Letters, digits, dot,
// dash and underscore are kept; every other rune becomes an underscore.
func FileName(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
	return strings.Trim(safe, ".") + FileExt
}

// Get reads the archive stored under key.
func (s *FileStore) Get(_ context.Context, key string) (*har.Archive, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read archive %q: %w", key, err)
	}

	var a har.Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse archive %q: %w", key, err)
	}
	a.Normalize()
	return &a, nil
}

// Save writes the archive under key, replacing any previous file.
func (s *FileStore) Save(_ context.Context, key string, a *har.Archive) error {
	if err := validateKey(key); err != nil {
		return err
	}

	// MkdirAll treats an existing directory as success, so concurrent
	// sessions creating the same directory do not fail.
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive %q: %w", key, err)
	}

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write archive %q: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write archive %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write archive %q: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName) // Clean up temp file on failure
		return fmt.Errorf("failed to write archive %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys of every archive in the directory, sorted. Keys are
// returned in their file name form, which Get and Save accept unchanged.
func (s *FileStore) Keys(_ context.Context) ([]string, error) {
	return s.Glob("*")
}

// Glob lists the keys whose file names match pattern. Patterns use
// doublestar syntax relative to the store directory, without the extension.
func (s *FileStore) Glob(pattern string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.dir), pattern+FileExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		keys = append(keys, strings.TrimSuffix(filepath.Base(m), FileExt))
	}
	sort.Strings(keys)
	return keys, nil
}
