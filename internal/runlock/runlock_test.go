package runlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"reelay/internal/runlock"
)

func TestTryLockAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "reconcile.lock")

	lock := runlock.New(path)
	if err := lock.TryLock(); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	// Reacquire after release.
	if err := lock.TryLock(); err != nil {
		t.Fatalf("TryLock after release: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
}

func TestUnlockWithoutAcquireIsSafe(t *testing.T) {
	lock := runlock.New(filepath.Join(t.TempDir(), "reconcile.lock"))
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock without acquire: %v", err)
	}
}

func TestSecondHolderIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconcile.lock")

	first := runlock.New(path)
	if err := first.TryLock(); err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	defer first.Unlock()

	second := runlock.New(path)
	if err := second.TryLock(); !errors.Is(err, runlock.ErrHeld) {
		t.Fatalf("expected ErrHeld, got %v", err)
	}
}
