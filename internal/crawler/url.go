package crawler

import (
	"fmt"
	"regexp"
	"strings"
)

// ArchiveBase is the Wayback Machine page prefix.
const ArchiveBase = "https://web.archive.org/web"

var timestampPattern = regexp.MustCompile(`\d{14}`)

// CanonicalKey reduces a raw or archived URL to a scheme-free identity.
// Everything up to the last http:// or https:// is dropped, then empty and
// whitespace-only path segments are removed.
func CanonicalKey(raw string) string {
	rest := raw
	if i := lastSchemeIndex(rest); i >= 0 {
		rest = rest[i:]
		rest = strings.TrimPrefix(rest, "https://")
		rest = strings.TrimPrefix(rest, "http://")
	}
	parts := strings.Split(rest, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "/")
}

func lastSchemeIndex(s string) int {
	return max(strings.LastIndex(s, "http://"), strings.LastIndex(s, "https://"))
}

// ExtractTimestamp returns the first 14-digit run in raw, or "".
func ExtractTimestamp(raw string) string {
	return timestampPattern.FindString(raw)
}

// ArchiveURL builds the archived page URL for a capture.
func ArchiveURL(base, timestamp, target string) string {
	if base == "" {
		base = ArchiveBase
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), timestamp, target)
}
