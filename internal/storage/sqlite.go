package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"promobot/internal/model"
	"promobot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// credentialSession is the row name of the stored source session string.
const credentialSession = "source_session"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// MarkContent records a dedup entry for the content ID with the given expiry.
func (s *SQLite) MarkContent(ctx context.Context, category model.Category, id string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO seen_content (category, content_id, expires_at) VALUES (?, ?, ?)`,
		string(category), id, expiresAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("mark content: %w", err)
	}
	return nil
}

// IsContentSeen checks whether an unexpired dedup entry exists.
func (s *SQLite) IsContentSeen(ctx context.Context, category model.Category, id string) (bool, error) {
	now := time.Now().UTC().Format(timeLayout)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seen_content WHERE category = ? AND content_id = ? AND expires_at > ?`,
		string(category), id, now,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check content seen: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired deletes all expired dedup entries, returning how many.
func (s *SQLite) PurgeExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM seen_content WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// SessionString returns the stored source session credential, or "" when
// none is stored.
func (s *SQLite) SessionString(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM credentials WHERE name = ?`, credentialSession,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	return value, nil
}

// SaveSessionString stores the source session credential.
func (s *SQLite) SaveSessionString(ctx context.Context, value string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		credentialSession, value, now,
	)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// ClearSessionString removes the stored source session credential.
func (s *SQLite) ClearSessionString(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, credentialSession)
	if err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
