// Package normalize derives stable comparison keys from free-text input.
// Both functions are pure: the same raw spelling always yields the same
// key, and spellings a human would read as equal collapse to one key.
package normalize

import (
	"strings"

	"github.com/gosimple/slug"
)

// Label canonicalizes a categorical label (production line name, defect
// or hold-reason text). ok is false when the input reduces to nothing.
func Label(raw string) (string, bool) {
	key := slug.Make(foldSeparators(raw))
	if key == "" {
		return "", false
	}
	return key, true
}

// LotID canonicalizes an identifier-like string so that separator and
// casing variants ("LOT 1002", "lot-1002", " lot_1002 ") all produce the
// same key. ok is false when the raw value is blank or carries no
// alphanumeric content ("???").
func LotID(raw string) (string, bool) {
	key := slug.Make(foldSeparators(raw))
	if key == "" {
		return "", false
	}
	return key, true
}

// slug keeps underscores; fold them into hyphens so underscore and
// hyphen spellings compare equal.
func foldSeparators(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "_", "-")
}
