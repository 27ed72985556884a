package history

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore keeps the most recent entries in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	limit   int
	entries []Entry
	index   map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most limit entries; the oldest
// are evicted first. A limit of 0 or less keeps every entry.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		limit: limit,
		index: make(map[string]int),
	}
}

func (s *MemoryStore) Save(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Steps = slices.Clone(entry.Steps)

	if i, ok := s.index[entry.RunID]; ok {
		s.entries[i] = entry
		return nil
	}

	s.entries = append(s.entries, entry)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = slices.Delete(s.entries, 0, len(s.entries)-s.limit)
	}
	s.reindex()
	return nil
}

func (s *MemoryStore) reindex() {
	clear(s.index)
	for i, e := range s.entries {
		s.index[e.RunID] = i
	}
}

func (s *MemoryStore) Get(_ context.Context, runID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[runID]
	if !ok {
		return Entry{}, ErrRunNotFound
	}
	return s.entries[i], nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.WorkflowID != "" && e.WorkflowID != filter.WorkflowID {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
