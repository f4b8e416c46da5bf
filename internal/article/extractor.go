// Package article turns a group of archived article URLs into one
// normalized ArticleRecord.
package article

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
)

var (
	excludedKeywordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`^LINK\|`),
		regexp.MustCompile(`WSJ`),
		regexp.MustCompile(`^SYND$`),
		regexp.MustCompile(`factiva`),
		regexp.MustCompile(`filter`),
		regexp.MustCompile(`gfx-`),
		regexp.MustCompile(`factset`),
	}
	articleIDDate = regexp.MustCompile(`\d{8}$`)
)

// Extractor fetches variants in order and builds a record from the first one
// that parses.
type Extractor struct {
	fetcher crawler.Fetcher
	parser  crawler.PageParser
	logger  *zap.Logger
}

// New builds an Extractor.
func New(fetcher crawler.Fetcher, parser crawler.PageParser, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{fetcher: fetcher, parser: parser, logger: logger.Named("article")}
}

// Extract returns the record of the first variant that fetches with status
// 200 and parses. It reports false when every variant fails.
func (e *Extractor) Extract(ctx context.Context, group crawler.ArticleVariantGroup) (crawler.ArticleRecord, bool) {
	for _, variant := range group.Variants {
		if ctx.Err() != nil {
			break
		}
		resp, err := e.fetcher.Fetch(ctx, variant)
		if err != nil {
			e.logger.Warn("Failed to fetch article", zap.String("url", variant), zap.Error(err))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			e.logger.Warn("Unexpected article status", zap.String("url", variant), zap.Int("status", resp.StatusCode))
			continue
		}
		page, err := e.parser.Parse(resp.Body, variant)
		if err != nil {
			e.logger.Error("Error processing article", zap.String("url", variant), zap.Error(err))
			continue
		}
		metrics.ObserveArticle("extracted")
		return BuildRecord(variant, page), true
	}
	metrics.ObserveArticle("failed")
	e.logger.Debug("No variant yielded an article", zap.String("key", group.CanonicalKey), zap.Int("variants", len(group.Variants)))
	return crawler.ArticleRecord{}, false
}

// BuildRecord applies the field fallbacks and keyword normalization.
func BuildRecord(variant string, page crawler.ParsedPage) crawler.ArticleRecord {
	keywords := FilterKeywords(keywordSource(page))
	return crawler.ArticleRecord{
		Headline:   firstNonEmpty(page.Title, page.MetaData["parsely-title"]),
		Content:    content(page),
		Summary:    firstNonEmpty(page.Summary, page.MetaData["parsely-summary"]),
		Keywords:   strings.TrimSpace(strings.Join(keywords, ",")),
		Companies:  strings.Join(Companies(keywords), ","),
		Date:       ResolveDate(page),
		URL:        variant,
		Timestamp:  crawler.ExtractTimestamp(variant),
		ArchiveURL: variant,
	}
}

func content(page crawler.ParsedPage) string {
	if page.MetaDescription != "" {
		return strings.TrimSpace(page.MetaDescription + "\n" + page.Text)
	}
	return strings.TrimSpace(page.Text)
}

// keywordSource picks the first non-empty of: the news_keywords tag, the
// extracted keywords, then the news_keywords and keywords metadata fields.
func keywordSource(page crawler.ParsedPage) []string {
	switch {
	case len(page.MetaKeywords) > 0:
		return page.MetaKeywords
	case len(page.Keywords) > 0:
		return page.Keywords
	case page.MetaData["news_keywords"] != "":
		return strings.Split(page.MetaData["news_keywords"], ",")
	default:
		return strings.Split(page.MetaData["keywords"], ",")
	}
}

// FilterKeywords drops syndication and feed artifacts and strips "wsj".
func FilterKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = strings.TrimSpace(kw)
		if kw == "" || excludedKeyword(kw) {
			continue
		}
		kw = strings.TrimSpace(strings.ReplaceAll(kw, "wsj", ""))
		lower := strings.ToLower(kw)
		if kw == "" || strings.Contains(lower, "factiva") || strings.Contains(lower, "filter") {
			continue
		}
		out = append(out, kw)
	}
	return out
}

func excludedKeyword(kw string) bool {
	for _, re := range excludedKeywordPatterns {
		if re.MatchString(kw) {
			return true
		}
	}
	return false
}

// Companies keeps keywords carrying an exchange prefix such as "US:AAPL".
func Companies(keywords []string) []string {
	var out []string
	for _, kw := range keywords {
		if strings.Contains(kw, "US:") {
			out = append(out, kw)
		}
	}
	return out
}

// ResolveDate prefers the parsed publish date, then a trailing YYYYMMDD in
// the article.id metadata field.
func ResolveDate(page crawler.ParsedPage) string {
	if page.PublishDate != nil && !page.PublishDate.IsZero() {
		return page.PublishDate.Format(crawler.DateLayout)
	}
	raw := articleIDDate.FindString(page.MetaData["article.id"])
	if raw == "" {
		return ""
	}
	d, err := time.Parse("20060102", raw)
	if err != nil {
		return ""
	}
	return d.Format(crawler.DateLayout)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
