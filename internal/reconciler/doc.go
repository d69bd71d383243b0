// Package reconciler drives one reconciliation pass: list the record files,
// find the ones whose scheduled time has passed, publish each through the
// Graph API, and mark the record posted only after a confirmed publish.
//
// Known limitation: a crash between a successful remote publish and the
// MarkPosted write leaves the record unposted on disk, so the next run will
// publish it again. The Graph API offers no idempotency key to close this
// window; the history database is the audit trail for diagnosing duplicates.
package reconciler
