// Package logging configures slog output for reelay.
//
// Two formats are supported: a compact console format for interactive use
// and JSON for log files and cron captures. Components attach themselves
// with NewComponentLogger so every line carries its origin.
package logging
