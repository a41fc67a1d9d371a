package runstate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"monthload/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore persists the run record as a single row in a SQLite database.
// SQLite's transactional REPLACE gives the same atomicity as the file
// backend's rename.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the run_state table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite state db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS run_state (
		id            INTEGER PRIMARY KEY CHECK (id = 1),
		last_run      TEXT NOT NULL,
		status        TEXT NOT NULL,
		last_artifact TEXT NOT NULL DEFAULT ''
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating run_state table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the single run_state row.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT last_run, status, last_artifact FROM run_state WHERE id = 1`)

	var lastRun, status, artifact string
	if err := row.Scan(&lastRun, &status, &artifact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAbsent
		}
		return nil, fmt.Errorf("%w: reading run_state row: %v", ErrCorrupt, err)
	}

	ts, err := time.Parse(time.RFC3339Nano, lastRun)
	if err != nil {
		return nil, fmt.Errorf("%w: run_state has invalid timestamp %q: %v", ErrCorrupt, lastRun, err)
	}
	st := domain.RunStatus(status)
	if st != domain.RunSuccess && st != domain.RunFailed {
		return nil, fmt.Errorf("%w: run_state has unknown status %q", ErrCorrupt, status)
	}

	return &domain.RunRecord{LastRun: ts, Status: st, LastArtifact: artifact}, nil
}

// Save replaces the single run_state row.
func (s *SQLiteStore) Save(ctx context.Context, rec *domain.RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO run_state (id, last_run, status, last_artifact) VALUES (1, ?, ?, ?)`,
		rec.LastRun.UTC().Format(time.RFC3339Nano), string(rec.Status), rec.LastArtifact)
	if err != nil {
		return fmt.Errorf("saving run_state row: %w", err)
	}
	return nil
}
