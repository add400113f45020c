package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps processed keys in a mutex-guarded map. A zero TTL keeps
// keys for the life of the process; a positive TTL starts a janitor goroutine
// that evicts expired keys. Construct one per service and inject it.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	ttl  time.Duration
	done chan struct{}
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		keys: make(map[string]time.Time),
		ttl:  ttl,
		done: make(chan struct{}),
	}

	if ttl > 0 {
		go s.janitor()
	}

	return s
}

func (s *MemoryStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.has(key), nil
}

func (s *MemoryStore) MarkProcessed(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = time.Now()
	return nil
}

func (s *MemoryStore) CheckAndMark(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.has(key) {
		return true, nil
	}

	s.keys[key] = time.Now()
	return false, nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
	return nil
}

func (s *MemoryStore) Close() {
	close(s.done)
}

// has assumes s.mu is held.
func (s *MemoryStore) has(key string) bool {
	at, ok := s.keys[key]
	if !ok {
		return false
	}

	if s.ttl > 0 && time.Since(at) >= s.ttl {
		delete(s.keys, key)
		return false
	}

	return true
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			for key, at := range s.keys {
				if time.Since(at) >= s.ttl {
					delete(s.keys, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
