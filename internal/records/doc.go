// Package records persists scheduled reel records as one JSON file per
// record. The on-disk shape is an external interface: files may be edited by
// hand or tracked in git, so the field set and formatting stay stable.
//
// A record's identity is its file path. The only mutation the store exposes
// is MarkPosted, which flips the posted flag with an atomic replace so a
// concurrent reader never sees a half-written file.
package records
