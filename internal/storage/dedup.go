package storage

import (
	"context"
	"time"

	"promobot/internal/model"
)

// Dedup adapts a Storage into the content-cache capability used by the
// fetch pipeline, stamping every mark with a fixed TTL. Unlike the
// in-memory cache it survives process restarts.
type Dedup struct {
	store Storage
	ttl   time.Duration
}

// NewDedup creates a Dedup with the given TTL.
func NewDedup(store Storage, ttl time.Duration) *Dedup {
	return &Dedup{store: store, ttl: ttl}
}

// Seen reports whether the content ID is marked and unexpired.
func (d *Dedup) Seen(ctx context.Context, category model.Category, id string) (bool, error) {
	return d.store.IsContentSeen(ctx, category, id)
}

// Mark records the content ID for the category.
func (d *Dedup) Mark(ctx context.Context, category model.Category, id string) error {
	return d.store.MarkContent(ctx, category, id, time.Now().Add(d.ttl))
}

// Run purges expired entries on the given interval, blocking until ctx is
// cancelled.
func (d *Dedup) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = d.store.PurgeExpired(ctx)
		}
	}
}
