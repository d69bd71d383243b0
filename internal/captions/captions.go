// Package captions normalizes and validates Instagram captions.
package captions

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxLength is the Instagram caption limit in characters. The limit is
// enforced over NFC-normalized text so composed and decomposed input count
// the same.
const MaxLength = 2200

// Normalize returns the caption in NFC form with surrounding whitespace
// removed. Interior newlines are preserved; Instagram renders them.
func Normalize(caption string) string {
	return strings.TrimSpace(norm.NFC.String(caption))
}

// Validate reports whether a normalized caption fits Instagram's limit.
func Validate(caption string) error {
	normalized := Normalize(caption)
	if count := utf8.RuneCountInString(normalized); count > MaxLength {
		return fmt.Errorf("caption is %d characters, limit is %d", count, MaxLength)
	}
	return nil
}
