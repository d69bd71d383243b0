package reconciler_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"reelay/internal/history"
	"reelay/internal/reconciler"
	"reelay/internal/records"
	"reelay/internal/services"
	"reelay/internal/services/instagram"
	"reelay/internal/testsupport"
)

type fakePublisher struct {
	mu      sync.Mutex
	calls   []instagram.ContainerRequest
	results map[string]publishOutcome
}

type publishOutcome struct {
	result instagram.PublishResult
	err    error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{results: make(map[string]publishOutcome)}
}

func (f *fakePublisher) succeedAll() {
	f.results[""] = publishOutcome{result: instagram.PublishResult{
		ContainerID: "container-1",
		MediaID:     "media-1",
		Phase:       instagram.PhaseComplete,
	}}
}

// failFor makes publishes whose caption contains marker fail.
func (f *fakePublisher) failFor(marker string, err error, phase instagram.Phase) {
	f.results[marker] = publishOutcome{result: instagram.PublishResult{Phase: phase}, err: err}
}

func (f *fakePublisher) Publish(_ context.Context, req instagram.ContainerRequest) (instagram.PublishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	for marker, outcome := range f.results {
		if marker != "" && strings.Contains(req.Caption, marker) {
			return outcome.result, outcome.err
		}
	}
	if outcome, ok := f.results[""]; ok {
		return outcome.result, outcome.err
	}
	return instagram.PublishResult{Phase: instagram.PhaseCreate}, errors.New("unconfigured publish")
}

func (f *fakePublisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store     *records.Store
	publisher *fakePublisher
	history   *history.Store
	rec       *reconciler.Reconciler
	dir       string
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := records.NewStore(cfg.Paths.RecordsDir, time.UTC)
	publisher := newFakePublisher()
	publisher.succeedAll()
	hist := testsupport.MustOpenHistory(t, cfg)
	now := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)

	rec, err := reconciler.New(store, publisher, hist, nil,
		reconciler.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{
		store:     store,
		publisher: publisher,
		history:   hist,
		rec:       rec,
		dir:       cfg.Paths.RecordsDir,
		now:       now,
	}
}

func (f *fixture) load(t *testing.T, path string) records.Record {
	t.Helper()
	record, err := f.store.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load %s: %v", path, err)
	}
	return record
}

func TestRunPublishesDueRecord(t *testing.T) {
	f := newFixture(t)
	path := testsupport.WriteRecord(t, f.dir, "reel_due.json", records.Record{
		VideoURL:      "https://cdn.example/v.mp4",
		Caption:       "due reel",
		ScheduledTime: "2024-01-15T14:00:00Z",
	})

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Posted != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.publisher.callCount() != 1 {
		t.Fatalf("publish calls = %d, want 1", f.publisher.callCount())
	}

	record := f.load(t, path)
	if !record.Posted {
		t.Fatal("record not marked posted")
	}
	if record.PostedAt == "" {
		t.Fatal("posted_at not set")
	}
}

func TestRunLeavesFutureRecordsUntouched(t *testing.T) {
	f := newFixture(t)
	path := testsupport.WriteRecord(t, f.dir, "reel_future.json", testsupport.FutureRecord(f.now))

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Future != 1 || summary.Posted != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.publisher.callCount() != 0 {
		t.Fatal("future record must not reach the publisher")
	}
	if f.load(t, path).Posted {
		t.Fatal("future record was modified")
	}
}

func TestRunSkipsPostedRecords(t *testing.T) {
	f := newFixture(t)
	record := testsupport.DueRecord(f.now)
	record.Posted = true
	record.PostedAt = "2024-01-10T09:00:00Z"
	testsupport.WriteRecord(t, f.dir, "reel_posted.json", record)

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.publisher.callCount() != 0 {
		t.Fatal("posted record must never reach the publisher")
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	f := newFixture(t)
	failing := testsupport.DueRecord(f.now)
	failing.Caption = "bad reel"
	failPath := testsupport.WriteRecord(t, f.dir, "reel_a_fail.json", failing)

	ok := testsupport.DueRecord(f.now)
	ok.Caption = "good reel"
	okPath := testsupport.WriteRecord(t, f.dir, "reel_b_ok.json", ok)

	f.publisher.failFor("bad",
		services.Wrap(services.ErrRateLimited, "instagram", "create", "limit reached", nil),
		instagram.PhaseCreate)

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Posted != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.publisher.callCount() != 2 {
		t.Fatalf("publish calls = %d, want 2", f.publisher.callCount())
	}
	if f.load(t, failPath).Posted {
		t.Fatal("failed record must stay unposted")
	}
	if !f.load(t, okPath).Posted {
		t.Fatal("succeeding record must be posted despite earlier failure")
	}
}

func TestRunTimeoutLeavesRecordDue(t *testing.T) {
	f := newFixture(t)
	record := testsupport.DueRecord(f.now)
	record.Caption = "slow reel"
	path := testsupport.WriteRecord(t, f.dir, "reel_slow.json", record)

	f.publisher.failFor("slow",
		services.Wrap(services.ErrTimeout, "instagram", "wait", "processing deadline exceeded", nil),
		instagram.PhaseProcess)

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if f.load(t, path).Posted {
		t.Fatal("timed-out record must stay unposted")
	}

	// The next run sees the record as due again.
	f.publisher.results["slow"] = publishOutcome{result: instagram.PublishResult{
		ContainerID: "container-2", MediaID: "media-2", Phase: instagram.PhaseComplete,
	}}
	summary, err = f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Posted != 1 {
		t.Fatalf("second summary = %+v", summary)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRecord(t, f.dir, "reel_due.json", testsupport.DueRecord(f.now))

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.Posted != 0 || summary.Skipped != 1 {
		t.Fatalf("second summary = %+v", summary)
	}
	if f.publisher.callCount() != 1 {
		t.Fatalf("publish calls = %d, want 1 across both runs", f.publisher.callCount())
	}
}

func TestRunCountsMalformedRecords(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteRawRecord(t, f.dir, "reel_broken.json", []byte("{not json"))
	testsupport.WriteRecord(t, f.dir, "reel_due.json", testsupport.DueRecord(f.now))

	summary, err := f.rec.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Invalid != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Posted != 1 {
		t.Fatal("valid records must still be processed alongside malformed ones")
	}
}

func TestRunRecordsAttemptHistory(t *testing.T) {
	f := newFixture(t)
	path := testsupport.WriteRecord(t, f.dir, "reel_due.json", testsupport.DueRecord(f.now))

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	attempts, err := f.history.AttemptsForRecord(context.Background(), path)
	if err != nil {
		t.Fatalf("AttemptsForRecord: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	attempt := attempts[0]
	if attempt.MediaID != "media-1" {
		t.Fatalf("media id = %q", attempt.MediaID)
	}
	if attempt.Phase != string(instagram.PhaseComplete) {
		t.Fatalf("phase = %q", attempt.Phase)
	}
	if attempt.RunID == "" || attempt.AttemptID == "" {
		t.Fatal("run and attempt IDs must be set")
	}
}

func TestRunRecordsFailedAttemptWithKind(t *testing.T) {
	f := newFixture(t)
	record := testsupport.DueRecord(f.now)
	record.Caption = "bad reel"
	path := testsupport.WriteRecord(t, f.dir, "reel_bad.json", record)

	f.publisher.failFor("bad",
		services.Wrap(services.ErrAuth, "instagram", "create", "token expired", nil),
		instagram.PhaseCreate)

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	attempts, err := f.history.AttemptsForRecord(context.Background(), path)
	if err != nil {
		t.Fatalf("AttemptsForRecord: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	if attempts[0].ErrKind != "auth" {
		t.Fatalf("err kind = %q", attempts[0].ErrKind)
	}
	if attempts[0].Succeeded() {
		t.Fatal("failed attempt reported as succeeded")
	}
}

func TestRunOnePublishesRegardlessOfSchedule(t *testing.T) {
	f := newFixture(t)
	path := testsupport.WriteRecord(t, f.dir, "reel_future.json", testsupport.FutureRecord(f.now))

	if err := f.rec.RunOne(context.Background(), path); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if f.publisher.callCount() != 1 {
		t.Fatalf("publish calls = %d, want 1", f.publisher.callCount())
	}
	if !f.load(t, path).Posted {
		t.Fatal("record not marked posted")
	}
}

func TestRunOneRefusesPostedRecord(t *testing.T) {
	f := newFixture(t)
	record := testsupport.DueRecord(f.now)
	record.Posted = true
	path := testsupport.WriteRecord(t, f.dir, "reel_posted.json", record)

	if err := f.rec.RunOne(context.Background(), path); err == nil {
		t.Fatal("expected error for already-posted record")
	}
	if f.publisher.callCount() != 0 {
		t.Fatal("posted record must never reach the publisher")
	}
}

func TestRunPassesOptionalFields(t *testing.T) {
	f := newFixture(t)
	locationID := "loc-77"
	coverURL := "https://cdn.example/cover.jpg"
	record := testsupport.DueRecord(f.now)
	record.LocationID = &locationID
	record.CoverURL = &coverURL
	testsupport.WriteRecord(t, f.dir, "reel_due.json", record)

	if _, err := f.rec.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.publisher.callCount() != 1 {
		t.Fatalf("publish calls = %d", f.publisher.callCount())
	}
	req := f.publisher.calls[0]
	if req.LocationID != locationID || req.CoverURL != coverURL {
		t.Fatalf("request = %+v", req)
	}
}
