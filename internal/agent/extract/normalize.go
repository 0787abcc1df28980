package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so "até"
// becomes "ate" and "consórcio" becomes "consorcio".
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases, strips diacritics and collapses whitespace. All
// vocabulary tables and classifier keyword sets are written against this
// normalized form.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}

// isWordBoundary reports whether the byte at the edge of a match separates
// words. Digits count as word characters so "hb20" is one token.
func isWordBoundary(s string, idx int) bool {
	if idx < 0 || idx >= len(s) {
		return true
	}
	c := s[idx]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}

// indexWord returns the index of needle in haystack at a word boundary, or
// -1 when absent.
func indexWord(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return -1
		}
		i += from
		if isWordBoundary(haystack, i-1) && isWordBoundary(haystack, i+len(needle)) {
			return i
		}
		from = i + 1
		if from >= len(haystack) {
			return -1
		}
	}
}

// ContainsWord reports whether needle occurs in haystack as a whole word.
// Exported for the classifier package, which shares the normalization and
// boundary rules.
func ContainsWord(haystack, needle string) bool {
	return indexWord(haystack, needle) >= 0
}

func containsWord(haystack, needle string) bool {
	return ContainsWord(haystack, needle)
}

// containsAnyWord reports whether any of the needles occurs as a whole word.
func containsAnyWord(haystack string, needles []string) bool {
	for _, n := range needles {
		if containsWord(haystack, n) {
			return true
		}
	}
	return false
}

// firstWordIndex returns the smallest index of any needle found at a word
// boundary, or -1.
func firstWordIndex(haystack string, needles []string) int {
	best := -1
	for _, n := range needles {
		if i := indexWord(haystack, n); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
