package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. Expired entries are retained
// until overwritten or evicted so GetStale can serve the degraded tier.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, fingerprint string) (*Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()
	if !ok || entry.Expired(s.now()) {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (s *MemoryStore) GetStale(_ context.Context, fingerprint string) (*Entry, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[fingerprint]
	s.mu.RUnlock()
	if !ok || !entry.Expired(s.now()) {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (s *MemoryStore) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	s.entries[entry.Fingerprint] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) EvictCapability(_ context.Context, capability string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped int64
	for fp, entry := range s.entries {
		if entry.Capability == capability {
			delete(s.entries, fp)
			dropped++
		}
	}
	return dropped, nil
}

func (s *MemoryStore) Close() error { return nil }
