// Package lock serializes reindex jobs across processes.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileName is the lock file created next to the index.
const FileName = ".reindex.lock"

// FileLock provides cross-process file locking using gofrs/flock.
// Only one process may hold it, so two reindex jobs never write the same
// index at once.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a file lock at <dir>/.reindex.lock.
func New(dir string) *FileLock {
	lockPath := filepath.Join(dir, FileName)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires the lock, blocking until it is available.
func (l *FileLock) Lock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns false if another process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this FileLock holds the lock.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

func (l *FileLock) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	return nil
}
