package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process KV implementation with per-entry expiry.
// It backs single-process deployments (no REDIS_ADDR configured) and all
// tests. Expired entries are dropped lazily on read and opportunistically
// swept on writes.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry

	// now is a seam for tests that need to step the clock across TTLs.
	now func() time.Time
}

type memEntry struct {
	value     string
	expiresAt time.Time // zero = never expires
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Get returns the live value for key, lazily evicting it when expired.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if !ent.expiresAt.IsZero() && !s.now().Before(ent.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return ent.value, true, nil
}

// SetTTL stores value under key. A non-positive ttl keeps the entry until
// deleted.
func (s *MemoryStore) SetTTL(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[key] = memEntry{value: value, expiresAt: exp}

	// Opportunistic sweep to bound memory between reads.
	if len(s.entries)%512 == 0 {
		now := s.now()
		for k, e := range s.entries {
			if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
				delete(s.entries, k)
			}
		}
	}
	return nil
}

// Delete removes key if present.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// SetClock overrides the store's time source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
