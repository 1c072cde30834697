package state

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store. It is the default when no durable
// backend is configured: the pipeline still runs, state just does not
// survive a restart. Also used heavily by tests.
type MemoryStore struct {
	mu       sync.RWMutex
	snapshot []byte
	optedOut bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSnapshot implements Store.
func (s *MemoryStore) LoadSnapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(s.snapshot, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshot implements Store. The snapshot is serialized on write so
// reloads observe exactly what a durable backend would have stored.
func (s *MemoryStore) SaveSnapshot(_ context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snapshot = data
	s.mu.Unlock()
	return nil
}

// LoadOptOut implements Store.
func (s *MemoryStore) LoadOptOut(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.optedOut, nil
}

// SaveOptOut implements Store.
func (s *MemoryStore) SaveOptOut(_ context.Context, optedOut bool) error {
	s.mu.Lock()
	s.optedOut = optedOut
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
