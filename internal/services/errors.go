package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input (bad record data, unsupported
	// video URL). Not retryable without operator intervention.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks missing or invalid credentials/config.
	ErrConfiguration = errors.New("configuration error")
	// ErrAuth marks a permanent rejection by the remote API (expired token,
	// missing permission, disabled account).
	ErrAuth = errors.New("authorization error")
	// ErrRateLimited marks an API throttle response. The record stays due
	// and is retried on the next scheduled run, never within the same run.
	ErrRateLimited = errors.New("rate limited")
	// ErrTimeout marks bounded polling that never reached a terminal state.
	ErrTimeout = errors.New("processing timeout")
	// ErrTransient marks network and 5xx failures that are safe to retry
	// on the next run.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for logging and the attempt
// history. Unknown errors report as transient since retrying them on the
// next run is the safe default.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

// Retryable reports whether the next scheduled run should attempt the
// operation again. Validation, configuration, and auth failures need a
// human first.
func Retryable(err error) bool {
	switch Kind(err) {
	case "validation", "configuration", "auth":
		return false
	default:
		return err != nil
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
