package flags

import "sync"

// MemoryStore keeps flags in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value of key.
func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores key=value.
func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

// SetIfAbsent stores key=value only when key has no value yet.
func (s *MemoryStore) SetIfAbsent(key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value
	return true, nil
}

// Close does nothing.
func (s *MemoryStore) Close() error { return nil }
