package crawler

import (
	"strings"
	"unicode"
)

// minArticleIDDigits is the digit count an article slug suffix must exceed.
const minArticleIDDigits = 3

// LooksLikeArticle applies the slug heuristic: the last path segment must
// contain a dash, and the text after its final dash must hold more than
// three digits (for example "stocks-rally-a1b2c3d4").
func LooksLikeArticle(raw string) bool {
	segment := lastPathSegment(raw)
	idx := strings.LastIndex(segment, "-")
	if idx < 0 {
		return false
	}
	return countDigits(segment[idx+1:]) > minArticleIDDigits
}

func lastPathSegment(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
