package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reelay/internal/records"
)

// WriteRecord persists a record fixture under the records directory and
// returns its path.
func WriteRecord(t testing.TB, dir, name string, record records.Record) string {
	t.Helper()

	store := records.NewStore(dir, time.UTC)
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir records dir: %v", err)
	}
	if err := store.Write(context.Background(), path, record); err != nil {
		t.Fatalf("write record %s: %v", name, err)
	}
	return path
}

// DueRecord returns an unposted record scheduled one hour before now.
func DueRecord(now time.Time) records.Record {
	return records.Record{
		VideoURL:      "https://cdn.example/video.mp4",
		Caption:       "test reel",
		ScheduledTime: now.Add(-time.Hour).UTC().Format(time.RFC3339),
	}
}

// FutureRecord returns an unposted record scheduled one hour after now.
func FutureRecord(now time.Time) records.Record {
	return records.Record{
		VideoURL:      "https://cdn.example/video.mp4",
		Caption:       "test reel",
		ScheduledTime: now.Add(time.Hour).UTC().Format(time.RFC3339),
	}
}

// WriteRawRecord writes arbitrary bytes as a record file, bypassing record
// validation. Used to build malformed fixtures.
func WriteRawRecord(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir records dir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write raw record %s: %v", name, err)
	}
	return path
}
