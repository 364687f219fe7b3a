package kv

import "sync"

// MemStore is a thread-safe, in-memory implementation of Store.
// Used by tests and by hosts that handle persistence themselves.
type MemStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemStore creates a new empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// Get returns the document stored under key.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	// Copy so callers cannot mutate the stored document.
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, true, nil
}

// Set stores the document under key, replacing any previous value.
func (s *MemStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make([]byte, len(value))
	copy(doc, value)
	s.docs[key] = doc
	return nil
}

// Delete removes the document under key.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemStore) Close() error { return nil }
