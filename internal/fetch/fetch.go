// Package fetch implements the promotion discovery use case: search the
// source, filter, deduplicate, and enqueue.
package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"promobot/internal/filter"
	"promobot/internal/model"
	"promobot/internal/source"
)

// Searcher is the session capability the use case needs.
type Searcher interface {
	SearchContent(ctx context.Context, criteria source.Criteria) ([]model.ContentItem, error)
}

// Dedup is the content cache capability: a TTL-keyed set of already-seen
// content IDs per category.
type Dedup interface {
	Seen(ctx context.Context, category model.Category, id string) (bool, error)
	Mark(ctx context.Context, category model.Category, id string) error
}

// Enqueuer is the queue store capability.
type Enqueuer interface {
	EnqueueMany(category model.Category, items []model.ContentItem)
}

// Criteria describes one fetch for a category.
type Criteria struct {
	Category model.Category
	Sources  []string
	Keywords []string
	MaxAge   time.Duration
	Limit    int
}

// UseCase fetches new content for a category and enqueues the survivors.
type UseCase struct {
	searcher Searcher
	dedup    Dedup
	queue    Enqueuer
	log      *slog.Logger
	now      func() time.Time
}

// New creates a UseCase.
func New(searcher Searcher, dedup Dedup, queue Enqueuer, log *slog.Logger) *UseCase {
	return &UseCase{
		searcher: searcher,
		dedup:    dedup,
		queue:    queue,
		log:      log,
		now:      time.Now,
	}
}

// Execute runs one fetch cycle and returns the number of items enqueued.
// Errors are terminal for this cycle only: a total search failure yields
// zero items, never an error to the caller.
func (u *UseCase) Execute(ctx context.Context, c Criteria) int {
	items, err := u.searcher.SearchContent(ctx, source.Criteria{
		Sources: c.Sources,
		Limit:   c.Limit,
	})
	if err != nil {
		if errors.Is(err, source.ErrAuthPending) {
			u.log.Warn("fetch skipped, authentication pending", "category", c.Category)
		} else {
			u.log.Error("search content", "category", c.Category, "error", err)
		}
		return 0
	}

	cutoff := u.now().Add(-c.MaxAge)

	var survivors []model.ContentItem
	for _, item := range items {
		if !filter.MatchKeywords(item.Text, c.Keywords) {
			continue
		}
		if item.PublishedAt.Before(cutoff) {
			continue
		}

		seen, err := u.dedup.Seen(ctx, c.Category, item.ID)
		if err != nil {
			u.log.Error("check dedup cache", "category", c.Category, "id", item.ID, "error", err)
			continue
		}
		if seen {
			continue
		}

		// Mark before enqueue so the same item cannot be double-enqueued
		// by this or a concurrent cycle.
		if err := u.dedup.Mark(ctx, c.Category, item.ID); err != nil {
			u.log.Error("mark dedup cache", "category", c.Category, "id", item.ID, "error", err)
			continue
		}
		survivors = append(survivors, item)
	}

	if len(survivors) > 0 {
		u.queue.EnqueueMany(c.Category, survivors)
		u.log.Info("enqueued promotions", "category", c.Category, "count", len(survivors))
	}
	return len(survivors)
}
