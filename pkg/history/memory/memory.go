// Package memory provides an in-memory history.Store for testing and
// lightweight use. Exchanges are lost when the process exits. Optional
// eviction limits memory usage.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/mkraev/llmprobe/pkg/history"
)

// Store is an in-memory history.Store with optional LRU eviction.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	lruList *list.List // front = most recently saved, back = oldest
	maxSize int        // 0 = unlimited
}

type entry struct {
	ex      *history.Exchange
	lruElem *list.Element
}

var _ history.Store = (*Store)(nil)

// New creates a new in-memory store. If maxSize is 0, the store grows
// without limit. If maxSize > 0, the oldest exchange is evicted when the
// limit is reached.
func New(maxSize int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Save persists an exchange in memory.
func (s *Store) Save(_ context.Context, ex *history.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[ex.ID]; exists {
		return history.ErrConflict
	}

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.lruList.PushFront(ex.ID)
	s.entries[ex.ID] = &entry{ex: ex, lruElem: elem}

	return nil
}

// Get retrieves an exchange by ID.
func (s *Store) Get(_ context.Context, id string) (*history.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, history.ErrNotFound
	}
	return e.ex, nil
}

// List returns exchanges newest first, optionally filtered by provider.
func (s *Store) List(_ context.Context, opts history.ListOptions) ([]*history.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]*history.Exchange, 0, len(s.entries))
	for _, e := range s.entries {
		if opts.Provider != "" && e.ex.Provider != opts.Provider {
			continue
		}
		matches = append(matches, e.ex)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID > matches[j].ID
	})

	limit := history.ClampLimit(opts.Limit)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// Clear removes all exchanges.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry)
	s.lruList.Init()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the oldest entry. Must be called with s.mu held.
func (s *Store) evictOldest() {
	back := s.lruList.Back()
	if back == nil {
		return
	}

	id := back.Value.(string)
	s.lruList.Remove(back)
	delete(s.entries, id)
}
