package store

import (
	"context"
	"database/sql"
	"log/slog"
)

// Store is the review store backed by a DB.
type Store struct {
	db     *DB
	logger *slog.Logger
}

// New creates a Store. A nil logger uses slog.Default.
func New(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) closeRows(rows *sql.Rows) {
	if rows == nil {
		return
	}
	if err := rows.Close(); err != nil {
		s.logger.Error("closing rows", "error", err)
	}
}
