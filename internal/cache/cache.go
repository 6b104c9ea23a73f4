// Package cache provides an in-memory TTL set used for content deduplication.
package cache

import (
	"context"
	"sync"
	"time"

	"promobot/internal/model"
)

// DefaultTTL is how long a marked entry suppresses re-delivery.
const DefaultTTL = 24 * time.Hour

// Memory is a TTL-keyed set. Entries expire after a fixed TTL independent
// of access; expiry is checked on read and removed by periodic sweeps so
// the set never grows unbounded.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemory creates a Memory set with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Has reports whether key is present and not expired.
// An expired entry is removed on read.
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.entries[key]
	if !ok {
		return false
	}
	if m.now().After(deadline) {
		delete(m.entries, key)
		return false
	}
	return true
}

// Mark adds key to the set, resetting its expiry deadline.
func (m *Memory) Mark(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = m.now().Add(m.ttl)
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes all expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, deadline := range m.entries {
		if now.After(deadline) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Run sweeps the set on the given interval, blocking until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// CategorySet is a category-scoped view over a Memory set, satisfying the
// dedup contract used by the fetch pipeline.
type CategorySet struct {
	mem *Memory
}

// NewCategorySet creates a CategorySet backed by the given Memory set.
func NewCategorySet(mem *Memory) *CategorySet {
	return &CategorySet{mem: mem}
}

// Seen reports whether the content ID has been marked for the category
// within the TTL window.
func (c *CategorySet) Seen(_ context.Context, category model.Category, id string) (bool, error) {
	return c.mem.Has(string(category) + "|" + id), nil
}

// Mark records the content ID for the category.
func (c *CategorySet) Mark(_ context.Context, category model.Category, id string) error {
	c.mem.Mark(string(category) + "|" + id)
	return nil
}
