package trigram

import (
	"strings"
	"unicode"
)

// MatchThreshold is the minimum similarity at which two strings are
// considered a fuzzy match, mirroring the default pg_trgm "%" operator
// threshold.
const MatchThreshold = 0.3

// Similarity calculates the trigram similarity between two strings,
// compatible with PostgreSQL's pg_trgm: each word is lowercased,
// padded with two leading and one trailing space, and decomposed into
// 3-character substrings; the score is the ratio of shared trigrams to
// the size of the union. Returns a value between 0.0 (no shared
// trigrams) and 1.0 (identical trigram sets).
func Similarity(s1, s2 string) float64 {
	t1 := Extract(s1)
	t2 := Extract(s2)

	if len(t1) == 0 || len(t2) == 0 {
		if len(t1) == 0 && len(t2) == 0 {
			return 1.0
		}
		return 0.0
	}

	shared := 0
	for tri := range t1 {
		if _, ok := t2[tri]; ok {
			shared++
		}
	}

	union := len(t1) + len(t2) - shared
	if union == 0 {
		return 1.0
	}

	return float64(shared) / float64(union)
}

// Matches reports whether the two strings pass the trigram-overlap
// threshold, the equivalent of pg_trgm's "%" operator.
func Matches(s1, s2 string) bool {
	return Similarity(s1, s2) >= MatchThreshold
}

// Extract returns the set of distinct trigrams for a string.
func Extract(s string) map[string]struct{} {
	trigrams := make(map[string]struct{})
	for _, word := range fields(s) {
		// pg_trgm pads each word with two spaces in front and one
		// behind, so short words still produce trigrams.
		padded := "  " + word + " "
		runes := []rune(padded)
		for i := 0; i+3 <= len(runes); i++ {
			trigrams[string(runes[i:i+3])] = struct{}{}
		}
	}
	return trigrams
}

// fields splits a string into lowercased alphanumeric words, treating
// every other rune as a separator.
func fields(s string) []string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		} else {
			result.WriteRune(' ')
		}
	}

	return strings.Fields(result.String())
}
