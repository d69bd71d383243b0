package records

import (
	"fmt"
	"strings"
	"time"
)

// Record describes one scheduled reel. Field names and ordering match the
// published record file format.
type Record struct {
	VideoURL      string  `json:"video_url"`
	Caption       string  `json:"caption"`
	ScheduledTime string  `json:"scheduled_time"`
	LocationID    *string `json:"location_id"`
	CoverURL      *string `json:"cover_url"`
	Posted        bool    `json:"posted"`
	PostedAt      string  `json:"posted_at,omitempty"`
}

// State classifies a record for one reconciliation pass.
type State string

const (
	// StateFuture means the scheduled time has not arrived; no action.
	StateFuture State = "future"
	// StateDue means the record is unposted and its time has passed.
	StateDue State = "due"
	// StatePosted is terminal; the record is never re-submitted.
	StatePosted State = "posted"
	// StateInvalid means the scheduled time is missing or unparseable.
	// Invalid records are never due; they are reported as data errors.
	StateInvalid State = "invalid"
)

// Naive timestamp layouts accepted for backward compatibility with records
// written without a UTC offset. They are interpreted in the configured zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseScheduledTime parses an ISO-8601 timestamp, interpreting values
// without an offset in loc.
func ParseScheduledTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("scheduled_time is empty")
	}
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("scheduled_time %q is not an ISO-8601 timestamp", value)
}

// ScheduledAt returns the parsed scheduled time.
func (r Record) ScheduledAt(loc *time.Location) (time.Time, error) {
	return ParseScheduledTime(r.ScheduledTime, loc)
}

// State classifies the record relative to now.
func (r Record) State(now time.Time, loc *time.Location) State {
	if r.Posted {
		return StatePosted
	}
	scheduled, err := r.ScheduledAt(loc)
	if err != nil {
		return StateInvalid
	}
	if scheduled.After(now) {
		return StateFuture
	}
	return StateDue
}

// Validate checks the fields required before a record can be scheduled.
func (r Record) Validate(loc *time.Location) error {
	if strings.TrimSpace(r.VideoURL) == "" {
		return fmt.Errorf("video_url is required")
	}
	if strings.TrimSpace(r.Caption) == "" {
		return fmt.Errorf("caption is required")
	}
	if _, err := r.ScheduledAt(loc); err != nil {
		return err
	}
	return nil
}
