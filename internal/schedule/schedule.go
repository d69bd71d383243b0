// Package schedule computes when the next reel is due so an external timer
// (cron, CI schedule) can be tightened to fire near that moment instead of
// polling on a fixed interval.
package schedule

import (
	"fmt"
	"time"

	"reelay/internal/records"
)

// NextPostTime returns the earliest future scheduled time among unposted
// records. The second return is false when nothing is pending.
func NextPostTime(entries []records.Entry, now time.Time, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}

	var next time.Time
	found := false
	for _, entry := range entries {
		if entry.Record.Posted {
			continue
		}
		scheduled, err := entry.Record.ScheduledAt(loc)
		if err != nil {
			continue
		}
		if !scheduled.After(now) {
			continue
		}
		if !found || scheduled.Before(next) {
			next = scheduled
			found = true
		}
	}
	return next, found
}

// CronExpression renders a one-shot cron line for the post time. The trigger
// fires one minute after the scheduled moment, in UTC, so the post time has
// definitely passed when the run starts.
func CronExpression(postTime time.Time) string {
	trigger := postTime.Add(time.Minute).UTC()
	return fmt.Sprintf("%d %d %d %d *", trigger.Minute(), trigger.Hour(), trigger.Day(), int(trigger.Month()))
}
