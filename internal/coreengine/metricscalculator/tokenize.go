package metricscalculator

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TokenizeWords splits text on runs of whitespace. Empty or blank input
// yields an empty slice.
func TokenizeWords(text string) []string {
	fields := strings.Fields(text)
	if fields == nil {
		return []string{}
	}
	return fields
}

// TokenizeChars splits text into one token per code point, whitespace
// included.
func TokenizeChars(text string) []string {
	tokens := make([]string, 0, len(text))
	for _, r := range text {
		tokens = append(tokens, string(r))
	}
	return tokens
}

// NormalizeText returns the NFC form of text with surrounding whitespace
// trimmed, so precomposed and combining diacritics compare equal.
func NormalizeText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}
