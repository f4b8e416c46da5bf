package crawler

import "strings"

// DefaultExcludePatterns are substrings that mark a link as non-article content.
var DefaultExcludePatterns = []string{
	"signin", "login", "subscri", "member", "footer", "about", "contact", "privacy", "terms", "help",
	"video", "podcast", "audio", "-worship", "architecture", "lifestyle", "fashion", "on-the-clock",
	"recipes", "travel", "real-estate", "science", "health", "sports", "arts-culture", "art-review",
	"obituar", "wine", "film-review", "book-review", "television-review", "arts", "art", "-review",
	"bookshelf", "play.google", "apple.com/us/app", "policy/legal-policies", "djreprints", "register",
	"wsj.jobs", "smartmoney", "classifieds", "cultural", "masterpiece", "puzzle", "personal-finance",
	"style", "customercenter", "snapchat", "cookie-notice", "facebook", "instagram", "twitter",
	"/policy/copyright-policy", "/policy/data-policy", "market-data/quotes/", "buyside",
	"accessibility-statement", "press-room", "mansionglobal", "images", "mailto", "youtube", "#",
	"get.investors",
}

// ExclusionList matches URLs containing any configured substring, ignoring case.
type ExclusionList struct {
	patterns []string
}

// NewExclusionList builds a matcher; a nil or empty list falls back to the defaults.
func NewExclusionList(patterns []string) *ExclusionList {
	if len(patterns) == 0 {
		patterns = DefaultExcludePatterns
	}
	list := &ExclusionList{}
	seen := make(map[string]struct{}, len(patterns))
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		list.patterns = append(list.patterns, value)
	}
	return list
}

// IsExcluded reports whether raw contains any exclusion pattern.
func (l *ExclusionList) IsExcluded(raw string) bool {
	if l == nil {
		return false
	}
	lower := strings.ToLower(raw)
	for _, p := range l.patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
