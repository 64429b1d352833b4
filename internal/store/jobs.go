package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/sitesearch/internal/record"
)

// SQLiteJobStore implements JobStore on SQLite.
type SQLiteJobStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ JobStore = (*SQLiteJobStore)(nil)

// OpenJobStore opens (or creates) the job database at path. An empty path
// gives an in-memory database.
func OpenJobStore(path string) (*SQLiteJobStore, error) {
	dsn := ":memory:"
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: required for :memory: and enough for one job.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteJobStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteJobStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- One row per job; remaining and failures are JSON arrays.
	CREATE TABLE IF NOT EXISTS job_checkpoint (
		job TEXT PRIMARY KEY,
		full INTEGER NOT NULL,
		total INTEGER NOT NULL,
		step INTEGER NOT NULL,
		remaining TEXT NOT NULL,
		failures TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveCheckpoint implements JobStore.
func (s *SQLiteJobStore) SaveCheckpoint(ctx context.Context, cp *Checkpoint) error {
	remaining := cp.Remaining
	if remaining == nil {
		remaining = []record.Ref{}
	}
	failures := cp.Failures
	if failures == nil {
		failures = []FailedStep{}
	}
	rj, err := json.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("failed to encode remaining refs: %w", err)
	}
	fj, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("failed to encode failures: %w", err)
	}
	updated := cp.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("job store is closed")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO job_checkpoint (job, full, total, step, remaining, failures, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job) DO UPDATE SET
			full = excluded.full,
			total = excluded.total,
			step = excluded.step,
			remaining = excluded.remaining,
			failures = excluded.failures,
			updated_at = excluded.updated_at`,
		cp.Job, cp.Full, cp.Total, cp.Step, string(rj), string(fj), updated.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint implements JobStore. It returns nil, nil when the job has
// no checkpoint.
func (s *SQLiteJobStore) LoadCheckpoint(ctx context.Context, job string) (*Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("job store is closed")
	}

	var (
		cp      = &Checkpoint{Job: job}
		rj, fj  string
		updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT full, total, step, remaining, failures, updated_at
		FROM job_checkpoint WHERE job = ?`, job).
		Scan(&cp.Full, &cp.Total, &cp.Step, &rj, &fj, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if err := json.Unmarshal([]byte(rj), &cp.Remaining); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint remaining refs: %w", err)
	}
	if err := json.Unmarshal([]byte(fj), &cp.Failures); err != nil {
		return nil, fmt.Errorf("corrupt checkpoint failures: %w", err)
	}
	cp.UpdatedAt = time.Unix(0, updated)
	return cp, nil
}

// ClearCheckpoint implements JobStore.
func (s *SQLiteJobStore) ClearCheckpoint(ctx context.Context, job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("job store is closed")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_checkpoint WHERE job = ?`, job); err != nil {
		return fmt.Errorf("failed to clear checkpoint: %w", err)
	}
	return nil
}

// GetState implements JobStore. A missing key returns "".
func (s *SQLiteJobStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("job store is closed")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState implements JobStore.
func (s *SQLiteJobStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("job store is closed")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// Close implements JobStore.
func (s *SQLiteJobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
