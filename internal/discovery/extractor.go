// Package discovery finds article links on archived section pages and groups
// archived copies of the same article together.
package discovery

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

// LinkExtractor pulls candidate article links out of page HTML.
type LinkExtractor struct {
	exclusions *crawler.ExclusionList
}

// NewLinkExtractor builds an extractor; a nil list uses the default patterns.
func NewLinkExtractor(exclusions *crawler.ExclusionList) *LinkExtractor {
	if exclusions == nil {
		exclusions = crawler.NewExclusionList(nil)
	}
	return &LinkExtractor{exclusions: exclusions}
}

// Extract returns the distinct article links of a page in document order.
func (e *LinkExtractor) Extract(html []byte) ([]crawler.CandidateLink, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := crawler.NewVisitTracker()
	var links []crawler.CandidateLink
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := e.candidate(href)
		if !ok || !seen.MarkIfNew(link) {
			return
		}
		links = append(links, crawler.CandidateLink{
			RawURL:    link,
			Timestamp: crawler.ExtractTimestamp(link),
		})
	})
	return links, nil
}

// candidate applies the exclusion rules and the article heuristic to one href.
func (e *LinkExtractor) candidate(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	if e.exclusions.IsExcluded(href) {
		return "", false
	}
	if !strings.HasPrefix(href, "http") {
		return "", false
	}
	if i := strings.Index(href, "?mod"); i >= 0 {
		href = href[:i]
	}
	if !crawler.LooksLikeArticle(href) {
		return "", false
	}
	return href, true
}
