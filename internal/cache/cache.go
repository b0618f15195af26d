package cache

import (
	"container/list"
	"context"
	"sync"
)

// SeenStore remembers message keys the monitor has already reported.
type SeenStore interface {
	// MarkSeen records key and reports whether it was new.
	MarkSeen(ctx context.Context, key string) (bool, error)
	// Forget drops key so a later MarkSeen reports it as new again.
	Forget(ctx context.Context, key string) error
}

// MemorySeenStore is a bounded in-process SeenStore. Once full, the oldest
// key is forgotten first.
type MemorySeenStore struct {
	mu    sync.Mutex
	limit int
	order *list.List
	keys  map[string]*list.Element
}

func NewMemorySeenStore(limit int) *MemorySeenStore {
	if limit <= 0 {
		limit = 1
	}
	return &MemorySeenStore{
		limit: limit,
		order: list.New(),
		keys:  make(map[string]*list.Element, limit),
	}
}

func (s *MemorySeenStore) MarkSeen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = s.order.PushBack(key)
	for s.order.Len() > s.limit {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.keys, oldest.Value.(string))
	}
	return true, nil
}

func (s *MemorySeenStore) Forget(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.keys[key]; ok {
		s.order.Remove(el)
		delete(s.keys, key)
	}
	return nil
}

func (s *MemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
