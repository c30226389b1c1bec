// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// FilenameSlug converts a book title into a safe media filename stem.
//
// Normalization rules:
//  1. Fold diacritics ("Café" → "Cafe")
//  2. Trim whitespace and lowercase
//  3. Replace spaces, underscores, and slashes with dashes
//  4. Remove non-alphanumeric characters (except dashes)
//  5. Collapse multiple dashes, trim leading/trailing dashes
//
// Examples:
//
//	"The Wind in the Willows"  → "the-wind-in-the-willows"
//	"Émile, ou De l'éducation" → "emile-ou-de-leducation"
//	"🐉 Dragons!"               → "dragons"
//
// An input with no usable characters falls back to "book".
func FilenameSlug(input string) string {
	// 1. Fold diacritics to their base letters
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, input); err == nil {
		input = folded
	}

	// 2. Trim and lowercase
	s := strings.ToLower(strings.TrimSpace(input))

	// 3. Replace word separators (spaces, underscores, slashes) with dashes
	s = wordSeparatorRe.ReplaceAllString(s, "-")

	// 4. Remove non-alphanumeric (except dashes)
	s = nonAlphanumericRe.ReplaceAllString(s, "")

	// 5. Collapse multiple dashes and trim
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "book"
	}
	return s
}
