package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory, keyed by session id.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]Cart)}
}

func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.carts[sessionID].Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, sessionID string, fn func(c *Cart) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.carts[sessionID].Clone()
	if err := fn(&c); err != nil {
		return err
	}

	if c.IsEmpty() {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = c
	return nil
}

// Forget drops a session's cart, used when an idle session is swept.
func (s *MemoryStore) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
}
