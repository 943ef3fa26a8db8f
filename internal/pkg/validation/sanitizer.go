package validation

import (
	"strings"
	"unicode"
)

const maxPhraseLength = 120

// SanitizePhrase trims the phrase, drops control characters and collapses whitespace runs.
func SanitizePhrase(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	if r := []rune(s); len(r) > maxPhraseLength {
		s = strings.TrimSpace(string(r[:maxPhraseLength]))
	}
	return s
}

// SanitizeBookmaker trims the bookmaker name. Aliases are resolved later by the bookmaker table.
func SanitizeBookmaker(s string) string {
	return strings.TrimSpace(s)
}
