// Package store persists watchlists and band snapshots to SQLite.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"KabuScope/internal/model"
)

// Store owns the SQLite database. Writes are serialized by a process-wide
// mutex and each write is a single upsert statement, so a reader never
// observes a partially written watchlist.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// Open opens (or creates) the SQLite database and runs migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so readers are not blocked while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite store opened", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watchlists (
			name       TEXT PRIMARY KEY,
			members    TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS band_snapshots (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code      TEXT NOT NULL,
			interval  TEXT NOT NULL,
			close     REAL,
			vwap      REAL,
			std_dev   REAL,
			upper1    REAL,
			lower1    REAL,
			upper2    REAL,
			lower2    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_code_ts ON band_snapshots(code, timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

// Recorder persists band snapshots for later inspection.
type Recorder interface {
	RecordSnapshot(res model.BatchResult) error
}

// NoopRecorder discards snapshots. Used when snapshot history is disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordSnapshot(model.BatchResult) error { return nil }
