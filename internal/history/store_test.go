package history_test

import (
	"context"
	"testing"
	"time"

	"reelay/internal/history"
	"reelay/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecentAttempts(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := history.Attempt{
		RunID:      "run-1",
		AttemptID:  "attempt-1",
		RecordPath: "/records/reel_a.json",
		Phase:      "complete",
		MediaID:    "media-1",
		StartedAt:  base,
		FinishedAt: base.Add(30 * time.Second),
	}
	second := history.Attempt{
		RunID:      "run-2",
		AttemptID:  "attempt-2",
		RecordPath: "/records/reel_b.json",
		Phase:      "create",
		ErrKind:    "rate_limited",
		ErrMessage: "Application request limit reached",
		StartedAt:  base.Add(time.Hour),
		FinishedAt: base.Add(time.Hour + time.Second),
	}
	if err := store.RecordAttempt(ctx, first); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, second); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	attempts, err := store.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].AttemptID != "attempt-2" {
		t.Fatalf("expected newest first, got %s", attempts[0].AttemptID)
	}
	if attempts[0].Succeeded() {
		t.Fatal("failed attempt reported as succeeded")
	}
	if !attempts[1].Succeeded() {
		t.Fatal("published attempt reported as failed")
	}
	if !attempts[1].StartedAt.Equal(base) {
		t.Fatalf("started_at round trip: %v", attempts[1].StartedAt)
	}
}

func TestAttemptsForRecord(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, path := range []string{"/records/a.json", "/records/b.json", "/records/a.json"} {
		attempt := history.Attempt{
			RunID:      "run-1",
			AttemptID:  "attempt-" + string(rune('a'+i)),
			RecordPath: path,
			Phase:      "complete",
			MediaID:    "media-1",
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := store.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}

	attempts, err := store.AttemptsForRecord(ctx, "/records/a.json")
	if err != nil {
		t.Fatalf("AttemptsForRecord: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if attempts[0].AttemptID != "attempt-c" {
		t.Fatalf("expected newest first, got %s", attempts[0].AttemptID)
	}
}

func TestRecordAttemptRequiresID(t *testing.T) {
	store := openStore(t)
	if err := store.RecordAttempt(context.Background(), history.Attempt{}); err == nil {
		t.Fatal("expected error for empty attempt id")
	}
}

func TestPurgeOlderThan(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := history.Attempt{
		RunID: "run-1", AttemptID: "attempt-old", RecordPath: "/records/a.json",
		Phase: "complete", MediaID: "media-1",
		StartedAt: base.AddDate(0, 0, -40), FinishedAt: base.AddDate(0, 0, -40),
	}
	fresh := history.Attempt{
		RunID: "run-2", AttemptID: "attempt-new", RecordPath: "/records/b.json",
		Phase: "complete", MediaID: "media-2",
		StartedAt: base, FinishedAt: base,
	}
	if err := store.RecordAttempt(ctx, old); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := store.RecordAttempt(ctx, fresh); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	removed, err := store.PurgeOlderThan(ctx, base.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	attempts, err := store.RecentAttempts(ctx, 10)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(attempts) != 1 || attempts[0].AttemptID != "attempt-new" {
		t.Fatalf("unexpected attempts after purge: %+v", attempts)
	}
}
