// Package store persists unit summaries and terminal session records
// in a SQLite database under .specter/. The core loop treats the store
// as optional: a nil *Store satisfies nothing, so callers hold the
// sink interfaces and simply pass nil to disable persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"specter/internal/logging"
)

// DBFileName is the database file inside the state directory.
const DBFileName = "specter.db"

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("opened %s", path)
	return s, nil
}

// initialize creates the schema.
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS units (
		path        TEXT PRIMARY KEY,
		hash        TEXT NOT NULL,
		summary     TEXT NOT NULL,
		analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		unit_path     TEXT NOT NULL,
		verdict       TEXT NOT NULL,
		attempts      INTEGER NOT NULL,
		infra_retries INTEGER NOT NULL,
		elapsed_ms    INTEGER NOT NULL,
		finished_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_unit ON sessions(unit_path);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutUnit upserts a unit summary.
func (s *Store) PutUnit(ctx context.Context, path, hash, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (path, hash, summary, analyzed_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			summary = excluded.summary,
			analyzed_at = CURRENT_TIMESTAMP`,
		path, hash, summary)
	if err != nil {
		return fmt.Errorf("put unit %s: %w", path, err)
	}
	return nil
}

// DeleteUnit removes a unit summary.
func (s *Store) DeleteUnit(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM units WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete unit %s: %w", path, err)
	}
	return nil
}

// GetUnit returns the stored hash and summary for a path.
func (s *Store) GetUnit(ctx context.Context, path string) (hash, summary string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := s.db.QueryRowContext(ctx, `SELECT hash, summary FROM units WHERE path = ?`, path)
	if err := row.Scan(&hash, &summary); err != nil {
		if err == sql.ErrNoRows {
			return "", "", nil
		}
		return "", "", fmt.Errorf("get unit %s: %w", path, err)
	}
	return hash, summary, nil
}

// CountUnits returns the number of stored units.
func (s *Store) CountUnits(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count units: %w", err)
	}
	return n, nil
}

// SessionRecord is the terminal summary persisted per healing session.
type SessionRecord struct {
	ID           string
	UnitPath     string
	Verdict      string
	Attempts     int
	InfraRetries int
	Elapsed      time.Duration
	FinishedAt   time.Time
}

// PutSession inserts a terminal session record.
func (s *Store) PutSession(ctx context.Context, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, unit_path, verdict, attempts, infra_retries, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UnitPath, rec.Verdict, rec.Attempts, rec.InfraRetries, rec.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("put session %s: %w", rec.ID, err)
	}
	return nil
}

// SessionsForUnit returns session records for a unit, newest first.
func (s *Store) SessionsForUnit(ctx context.Context, unitPath string) ([]SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, unit_path, verdict, attempts, infra_retries, elapsed_ms, finished_at
		FROM sessions WHERE unit_path = ? ORDER BY finished_at DESC`, unitPath)
	if err != nil {
		return nil, fmt.Errorf("query sessions for %s: %w", unitPath, err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var elapsedMS int64
		if err := rows.Scan(&rec.ID, &rec.UnitPath, &rec.Verdict, &rec.Attempts, &rec.InfraRetries, &elapsedMS, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}
