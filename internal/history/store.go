package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"reelay/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; an old database must be deleted before reelay can use it again.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// reelay version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Attempt is one publish attempt against one record file.
type Attempt struct {
	RunID      string
	AttemptID  string
	RecordPath string
	Phase      string
	MediaID    string
	ErrKind    string
	ErrMessage string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the attempt ended with a published reel.
func (a Attempt) Succeeded() bool {
	return a.MediaID != "" && a.ErrKind == ""
}

// Store persists publish attempts in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the history database, creating it on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// RecordAttempt appends one attempt to the trail.
func (s *Store) RecordAttempt(ctx context.Context, attempt Attempt) error {
	if attempt.AttemptID == "" {
		return errors.New("attempt id must not be empty")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attempts (
            run_id, attempt_id, record_path, phase, media_id,
            err_kind, err_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.RunID,
		attempt.AttemptID,
		attempt.RecordPath,
		attempt.Phase,
		nullableString(attempt.MediaID),
		nullableString(attempt.ErrKind),
		nullableString(attempt.ErrMessage),
		attempt.StartedAt.UTC().Format(time.RFC3339Nano),
		attempt.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the newest attempts first, up to limit.
func (s *Store) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, attempt_id, record_path, phase, media_id,
                err_kind, err_message, started_at, finished_at
         FROM attempts ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// AttemptsForRecord returns all attempts against one record file, newest
// first.
func (s *Store) AttemptsForRecord(ctx context.Context, recordPath string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, attempt_id, record_path, phase, media_id,
                err_kind, err_message, started_at, finished_at
         FROM attempts WHERE record_path = ? ORDER BY started_at DESC, id DESC`,
		recordPath,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts for record: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

// PurgeOlderThan deletes attempts that started before cutoff and returns how
// many rows were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		"DELETE FROM attempts WHERE started_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("purge attempts: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	var attempts []Attempt
	for rows.Next() {
		var attempt Attempt
		var mediaID, errKind, errMessage sql.NullString
		var startedAt, finishedAt string
		if err := rows.Scan(
			&attempt.RunID,
			&attempt.AttemptID,
			&attempt.RecordPath,
			&attempt.Phase,
			&mediaID,
			&errKind,
			&errMessage,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		attempt.MediaID = mediaID.String
		attempt.ErrKind = errKind.String
		attempt.ErrMessage = errMessage.String
		if parsed, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			attempt.StartedAt = parsed
		}
		if parsed, err := time.Parse(time.RFC3339Nano, finishedAt); err == nil {
			attempt.FinishedAt = parsed
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
