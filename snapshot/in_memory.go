package snapshot

import (
	"sort"
	"sync"
)

// InMemoryStore keeps snapshots in a map guarded by an RWMutex. Useful for
// tests, examples and single-process runs. Data is copied on save and load to
// avoid accidental external mutation of internal buffers.
type InMemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty in-memory snapshot store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snapshots: make(map[string][]byte)}
}

// Save stores (or overwrites) the snapshot bytes for the token.
func (s *InMemoryStore) Save(token string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.snapshots[token] = cp
	return nil
}

// Load returns a copy of the stored bytes or ErrNotFound.
func (s *InMemoryStore) Load(token string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.snapshots[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// List returns the stored tokens in lexical order.
func (s *InMemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tokens := make([]string, 0, len(s.snapshots))
	for t := range s.snapshots {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens, nil
}

// Delete removes the snapshot if present or returns ErrNotFound.
func (s *InMemoryStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[token]; !ok {
		return ErrNotFound
	}
	delete(s.snapshots, token)
	return nil
}
