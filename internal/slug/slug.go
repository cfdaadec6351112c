// Package slug converts arbitrary text into URL- and filesystem-safe
// identifiers used as item filenames.
package slug

import "strings"

// MaxLength is the default length bound applied by Make.
const MaxLength = 50

// Make lowercases text, drops every rune outside [a-z0-9 -], collapses
// whitespace and hyphen runs to single hyphens, trims edge hyphens, and
// truncates to maxLength. Truncation may leave a trailing hyphen.
//
// Non-ASCII letters are dropped rather than transliterated ("Café" → "caf").
// An empty result means the input had no usable characters; callers must
// treat that as invalid.
func Make(text string, maxLength int) string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		case r == '-':
			b.WriteByte('-')
		}
	}

	s := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if maxLength > 0 && len(s) > maxLength {
		s = s[:maxLength]
	}
	return s
}

// Default applies Make with the standard length bound.
func Default(text string) string {
	return Make(text, MaxLength)
}
