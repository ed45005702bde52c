package store

import "sync"

// MemStore is an in-memory Store used in tests and as a fallback when
// no persistence directory is configured.
type MemStore struct {
	mu   sync.Mutex
	docs map[string][]byte

	// FailSaves makes every Save return this error. Tests use it to
	// exercise the non-fatal persistence failure paths.
	FailSaves error
}

func NewMemStore() *MemStore {
	return &MemStore{docs: make(map[string][]byte)}
}

func (s *MemStore) Load(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (s *MemStore) Save(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSaves != nil {
		return s.FailSaves
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.docs[key] = stored
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, key)
	return nil
}
