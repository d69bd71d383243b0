// Package history records every publish attempt in a local SQLite database.
// Record files only remember whether a reel was posted; the history database
// keeps the full trail of runs, failures, and media IDs for inspection.
package history
