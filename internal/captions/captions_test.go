package captions_test

import (
	"strings"
	"testing"

	"reelay/internal/captions"
)

func TestNormalizeComposesAndTrims(t *testing.T) {
	// "e" followed by a combining acute normalizes to the composed form.
	got := captions.Normalize("  café  ")
	if got != "café" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestNormalizeKeepsNewlines(t *testing.T) {
	got := captions.Normalize("line one\nline two")
	if got != "line one\nline two" {
		t.Fatalf("newlines should survive: %q", got)
	}
}

func TestValidateLimit(t *testing.T) {
	if err := captions.Validate(strings.Repeat("a", captions.MaxLength)); err != nil {
		t.Fatalf("caption at limit should pass: %v", err)
	}
	if err := captions.Validate(strings.Repeat("a", captions.MaxLength+1)); err == nil {
		t.Fatal("caption over limit should fail")
	}
}

func TestValidateCountsNormalizedRunes(t *testing.T) {
	// Decomposed pairs collapse to single runes after NFC, so a caption that
	// only exceeds the limit before normalization is still valid.
	caption := strings.Repeat("e\u0301", captions.MaxLength)
	if err := captions.Validate(caption); err != nil {
		t.Fatalf("normalized caption should fit: %v", err)
	}
}
