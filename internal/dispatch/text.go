package dispatch

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Acronyms and dotted abbreviations are read letter by letter by the
// synthesizer, so replies carrying them go out as text.
var acronymPattern = regexp.MustCompile(`\b(?:[A-Z]{2,}|\b(?:[A-Z]\.){2,}[A-Z]?)\b`)

const segmentSeparator = "\n\n"

// SpeechEligible reports whether text may be delivered as synthesized audio.
func SpeechEligible(text string, audioPreference bool, limit int) bool {
	if !audioPreference {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > limit {
		return false
	}
	if strings.ContainsFunc(text, unicode.IsDigit) || strings.Contains(text, "/") {
		return false
	}
	return !acronymPattern.MatchString(text)
}

// Split breaks a reply longer than limit runes on blank lines. Shorter
// replies come back whole. Empty segments are dropped.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	parts := strings.Split(text, segmentSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
