package kv

import (
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store implementation backed by per-partition maps.
// It is safe for concurrent use and intended primarily for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[Partition]map[string][]byte
}

// NewMemory creates a new in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[Partition]map[string][]byte),
	}
}

func (m *Memory) Get(_ context.Context, p Partition, id string) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[p][id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	// Return a copy to prevent mutation.
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (m *Memory) Put(_ context.Context, p Partition, id string, value []byte) error {
	// Panics on ids containing the separator, matching the Badger backend.
	_ = encodeKey(p, id)
	cp := make([]byte, len(value))
	copy(cp, value)
	m.mu.Lock()
	if m.data[p] == nil {
		m.data[p] = make(map[string][]byte)
	}
	m.data[p][id] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Keys(_ context.Context, p Partition) iter.Seq2[string, error] {
	// Snapshot ids under read lock.
	m.mu.RLock()
	ids := make([]string, 0, len(m.data[p]))
	for id := range m.data[p] {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	// Sort for deterministic lexicographic order.
	sort.Strings(ids)

	return func(yield func(string, error) bool) {
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
