// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"promobot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// Dedup entries: (category, content id) presence markers with expiry.
	MarkContent(ctx context.Context, category model.Category, id string, expiresAt time.Time) error
	IsContentSeen(ctx context.Context, category model.Category, id string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)

	// Stored session credential for the external source.
	SessionString(ctx context.Context) (string, error)
	SaveSessionString(ctx context.Context, value string) error
	ClearSessionString(ctx context.Context) error

	Close() error
}
