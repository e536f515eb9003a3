// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps indexes in process memory and searches by brute force.
type MemoryStore struct {
	mu      sync.RWMutex
	indexes map[string]*memIndex
}

type memIndex struct {
	dim     int
	entries []Entry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indexes: make(map[string]*memIndex)}
}

func (s *MemoryStore) Create(_ context.Context, name string, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; ok {
		return fmt.Errorf("index %s already exists", name)
	}
	s.indexes[name] = &memIndex{dim: dim}
	return nil
}

func (s *MemoryStore) Destroy(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, name)
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, name string, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	for _, e := range entries {
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("entry %s has dimension %d, index %s expects %d", e.ID, len(e.Vector), name, idx.dim)
		}
	}
	idx.entries = append(idx.entries, entries...)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, name string, vector []float32, k int) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return rank(idx.entries, vector, k), nil
}

func (s *MemoryStore) Count(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
	}
	return len(idx.entries), nil
}

func (s *MemoryStore) Close() error { return nil }
