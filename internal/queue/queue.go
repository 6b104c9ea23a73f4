// Package queue implements the per-category FIFO store of pending content.
package queue

import (
	"sync"

	"promobot/internal/model"
)

// Store holds one FIFO queue per category. Each category queue has its own
// lock, so operations on different categories never block one another.
type Store struct {
	mu     sync.RWMutex
	queues map[model.Category]*categoryQueue
}

type categoryQueue struct {
	mu    sync.Mutex
	items []model.ContentItem
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{queues: make(map[model.Category]*categoryQueue)}
}

func (s *Store) queue(category model.Category) *categoryQueue {
	s.mu.RLock()
	q, ok := s.queues[category]
	s.mu.RUnlock()
	if ok {
		return q
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok = s.queues[category]; ok {
		return q
	}
	q = &categoryQueue{}
	s.queues[category] = q
	return q
}

// EnqueueMany appends items to the category queue, preserving their order.
func (s *Store) EnqueueMany(category model.Category, items []model.ContentItem) {
	if len(items) == 0 {
		return
	}
	q := s.queue(category)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Dequeue removes and returns up to max items from the front of the
// category queue, fewer if the queue is shorter.
func (s *Store) Dequeue(category model.Category, max int) []model.ContentItem {
	if max <= 0 {
		return nil
	}
	q := s.queue(category)
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max, len(q.items))
	if n == 0 {
		return nil
	}
	out := make([]model.ContentItem, n)
	copy(out, q.items[:n])
	q.items = q.items[n:]
	return out
}

// Size returns the number of pending items for the category.
func (s *Store) Size(category model.Category) int {
	q := s.queue(category)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
