package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelay/internal/fileutil"
)

// Entry pairs a record with its identity (the file path).
type Entry struct {
	Path   string
	Record Record
}

// Problem reports a record file that could not be used. Problems never abort
// a listing; the reconciler surfaces them as data errors.
type Problem struct {
	Path string
	Err  error
}

// Store reads and writes record files under a single directory.
type Store struct {
	dir string
	loc *time.Location
}

// NewStore constructs a store rooted at dir. Naive scheduled times are
// interpreted in loc.
func NewStore(dir string, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{dir: dir, loc: loc}
}

// Dir returns the records directory.
func (s *Store) Dir() string { return s.dir }

// Location returns the zone used for naive scheduled times.
func (s *Store) Location() *time.Location { return s.loc }

// List returns every parseable record in the directory sorted by path,
// plus a problem entry for each file that was skipped. A missing directory
// yields an empty listing; an unreadable one is a store read error.
func (s *Store) List(ctx context.Context) ([]Entry, []Problem, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: read %s: %w", ErrRead, s.dir, err)
	}

	var entries []Entry
	var problems []Problem
	for _, dirEntry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, dirEntry.Name())
		record, err := s.Load(ctx, path)
		if err != nil {
			problems = append(problems, Problem{Path: path, Err: err})
			continue
		}
		entries = append(entries, Entry{Path: path, Record: record})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, problems, nil
}

// Load reads and validates a single record file.
func (s *Store) Load(ctx context.Context, path string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("%w: read %s: %w", ErrRead, path, err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	if err := record.Validate(s.loc); err != nil {
		return Record{}, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	return record, nil
}

// Write persists a record, creating or replacing the file atomically.
func (s *Store) Write(ctx context.Context, path string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeRecord(record)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrWrite, path, err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}

// MarkPosted sets posted=true and records the publish time, persisting with
// an atomic replace. The posted flag never reverts.
func (s *Store) MarkPosted(ctx context.Context, path string, postedAt time.Time) error {
	record, err := s.Load(ctx, path)
	if err != nil {
		return err
	}
	if record.Posted {
		return nil
	}
	record.Posted = true
	record.PostedAt = postedAt.Format(time.RFC3339)
	return s.Write(ctx, path, record)
}

// Remove deletes a record file. Used only by cleanup, never by reconcile.
func (s *Store) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrWrite, path, err)
	}
	return nil
}

func encodeRecord(record Record) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(record); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
