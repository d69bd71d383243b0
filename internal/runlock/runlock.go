// Package runlock serializes reconcile runs. Two concurrent runs over the
// same records directory could both see a record as due and publish it twice,
// so a run holds a file lock for its whole duration.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrHeld means another reconcile run owns the lock.
var ErrHeld = errors.New("another reconcile run is active")

// Lock is a file-backed exclusive lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock at path without acquiring it.
func New(path string) *Lock {
	return &Lock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// TryLock acquires the lock without blocking. ErrHeld is returned when
// another process owns it.
func (l *Lock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("%w (lock %s)", ErrHeld, l.path)
	}
	return nil
}

// Unlock releases the lock. Safe to call when the lock was never acquired.
func (l *Lock) Unlock() error {
	return l.lock.Unlock()
}
