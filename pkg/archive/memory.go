package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/getmockd/netmock/pkg/har"
)

// MemoryStore is a thread-safe in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	archives map[string]*har.Archive
	saves    map[string]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		archives: make(map[string]*har.Archive),
		saves:    make(map[string]int),
	}
}

// Get returns a copy of the archive stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (*har.Archive, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.archives[key]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// Save stores a copy of a under key.
func (s *MemoryStore) Save(_ context.Context, key string, a *har.Archive) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.archives[key] = a.Clone()
	s.saves[key]++
	return nil
}

// Keys returns every stored key, sorted.
func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.archives))
	for k := range s.archives {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// SaveCount returns how many times Save was called for key.
func (s *MemoryStore) SaveCount(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[key]
}
