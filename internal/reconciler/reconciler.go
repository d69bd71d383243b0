package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"reelay/internal/history"
	"reelay/internal/logging"
	"reelay/internal/notifications"
	"reelay/internal/records"
	"reelay/internal/services"
	"reelay/internal/services/instagram"
)

// Publisher is the publish surface the reconciler needs from the Graph API
// client.
type Publisher interface {
	Publish(ctx context.Context, req instagram.ContainerRequest) (instagram.PublishResult, error)
}

// AttemptRecorder persists publish attempts. Satisfied by *history.Store.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, attempt history.Attempt) error
}

// Summary counts the outcomes of one reconciliation pass.
type Summary struct {
	Posted  int
	Failed  int
	Skipped int
	Future  int
	Invalid int
}

// Reconciler publishes due records and records the outcome.
type Reconciler struct {
	store     *records.Store
	publisher Publisher
	history   AttemptRecorder
	notifier  notifications.Service
	logger    *slog.Logger
	clock     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source (used in tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Reconciler) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "reconciler")
		}
	}
}

// New constructs a Reconciler. The history recorder and notifier may be nil;
// attempts are then not persisted and no notifications go out.
func New(store *records.Store, publisher Publisher, recorder AttemptRecorder, notifier notifications.Service, opts ...Option) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	rec := &Reconciler{
		store:     store,
		publisher: publisher,
		history:   recorder,
		notifier:  notifier,
		logger:    logging.NewNop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec, nil
}

// Run performs one reconciliation pass over every record in the store. A
// failing record never aborts the pass; the summary reports how each record
// was handled. The returned error covers infrastructure failures only (an
// unreadable records directory), not per-record publish failures.
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))
	started := r.clock()

	entries, problems, err := r.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list records: %w", err)
	}

	var summary Summary
	summary.Invalid = len(problems)
	for _, problem := range problems {
		logger.Error("skipping malformed record",
			logging.String(logging.FieldRecord, problem.Path),
			logging.Error(problem.Err))
	}

	now := r.clock()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		switch entry.Record.State(now, r.store.Location()) {
		case records.StatePosted:
			summary.Skipped++
		case records.StateFuture:
			summary.Future++
		case records.StateInvalid:
			summary.Invalid++
			logger.Error("record has invalid scheduled time",
				logging.String(logging.FieldRecord, entry.Path))
		case records.StateDue:
			if err := r.publishRecord(ctx, logger, runID, entry); err != nil {
				summary.Failed++
			} else {
				summary.Posted++
			}
		}
	}

	duration := r.clock().Sub(started)
	logger.Info("reconcile pass complete",
		logging.Int("posted", summary.Posted),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("future", summary.Future),
		logging.Int("invalid", summary.Invalid),
		logging.Duration("duration", duration))
	if summary.Posted > 0 || summary.Failed > 0 {
		if err := r.notifier.NotifyRunCompleted(ctx, summary.Posted, summary.Failed, duration); err != nil {
			logger.Warn("run notification failed", logging.Error(err))
		}
	}
	return summary, nil
}

// RunOne publishes a single record by path regardless of its scheduled time.
// Already-posted records are refused before any remote call.
func (r *Reconciler) RunOne(ctx context.Context, path string) error {
	runID := uuid.NewString()
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))

	record, err := r.store.Load(ctx, path)
	if err != nil {
		return err
	}
	if record.Posted {
		return fmt.Errorf("record %s is already posted", path)
	}
	return r.publishRecord(ctx, logger, runID, records.Entry{Path: path, Record: record})
}

func (r *Reconciler) publishRecord(ctx context.Context, logger *slog.Logger, runID string, entry records.Entry) error {
	attemptID := uuid.NewString()
	attemptLogger := logger.With(
		logging.String(logging.FieldAttemptID, attemptID),
		logging.String(logging.FieldRecord, entry.Path))
	attemptLogger.Info("publishing reel",
		logging.String("scheduled_time", entry.Record.ScheduledTime))

	req := instagram.ContainerRequest{
		VideoURL: entry.Record.VideoURL,
		Caption:  entry.Record.Caption,
	}
	if entry.Record.LocationID != nil {
		req.LocationID = *entry.Record.LocationID
	}
	if entry.Record.CoverURL != nil {
		req.CoverURL = *entry.Record.CoverURL
	}

	started := r.clock()
	result, publishErr := r.publisher.Publish(ctx, req)
	finished := r.clock()

	r.recordAttempt(ctx, attemptLogger, history.Attempt{
		RunID:      runID,
		AttemptID:  attemptID,
		RecordPath: entry.Path,
		Phase:      string(result.Phase),
		MediaID:    result.MediaID,
		ErrKind:    services.Kind(publishErr),
		ErrMessage: errMessage(publishErr),
		StartedAt:  started,
		FinishedAt: finished,
	})

	if publishErr != nil {
		attemptLogger.Error("publish failed",
			logging.String(logging.FieldPhase, string(result.Phase)),
			logging.String(logging.FieldErrorKind, services.Kind(publishErr)),
			logging.Error(publishErr))
		if err := r.notifier.NotifyReelFailed(ctx, entry.Path, publishErr); err != nil {
			attemptLogger.Warn("failure notification failed", logging.Error(err))
		}
		return publishErr
	}

	// The remote post exists from here on. A MarkPosted failure must be loud:
	// until the flag is on disk the next run will publish again.
	if err := r.store.MarkPosted(ctx, entry.Path, finished); err != nil {
		attemptLogger.Error("publish succeeded but record update failed; record will be retried",
			logging.String(logging.FieldMediaID, result.MediaID),
			logging.Error(err))
		if notifyErr := r.notifier.NotifyError(ctx, err, "record update after publish"); notifyErr != nil {
			attemptLogger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return fmt.Errorf("mark posted %s: %w", entry.Path, err)
	}

	attemptLogger.Info("reel published",
		logging.String(logging.FieldMediaID, result.MediaID))
	if err := r.notifier.NotifyReelPublished(ctx, entry.Record.Caption, result.MediaID); err != nil {
		attemptLogger.Warn("post notification failed", logging.Error(err))
	}
	return nil
}

func (r *Reconciler) recordAttempt(ctx context.Context, logger *slog.Logger, attempt history.Attempt) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordAttempt(ctx, attempt); err != nil {
		logger.Warn("history write failed", logging.Error(err))
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
