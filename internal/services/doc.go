// Package services contains the shared error taxonomy for the external
// collaborators reelay talks to (Instagram Graph API, Cloudinary, ntfy).
// Errors are tagged with sentinel markers so the reconciler can decide
// whether a failed record should be retried on the next run.
package services
