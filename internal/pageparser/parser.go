// Package pageparser extracts article fields from raw HTML: readable title
// and body text, meta tags, a publish date, plus frequency based keywords
// and an extractive summary.
package pageparser

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

// ErrNoContent is returned when a page has neither a title nor body text.
var ErrNoContent = errors.New("page has no article content")

// publishDateKeys are metadata fields consulted when readability finds no date.
var publishDateKeys = []string{
	"article:published_time",
	"article.published",
	"parsely-pub-date",
	"datePublished",
	"pubdate",
	"date",
	"DC.date.issued",
}

// Config tunes the keyword and summary stages.
type Config struct {
	MaxKeywords      int
	SummarySentences int
}

// Parser implements crawler.PageParser.
type Parser struct {
	cfg Config
}

// New returns a Parser with defaults applied.
func New(cfg Config) *Parser {
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 10
	}
	if cfg.SummarySentences <= 0 {
		cfg.SummarySentences = 5
	}
	return &Parser{cfg: cfg}
}

// Parse extracts a ParsedPage from html.
func (p *Parser) Parse(html []byte, pageURL string) (crawler.ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return crawler.ParsedPage{}, fmt.Errorf("parse html: %w", err)
	}
	meta := metaData(doc)

	page := crawler.ParsedPage{
		MetaDescription: strings.TrimSpace(doc.Find(`meta[name="description"]`).First().AttrOr("content", "")),
		MetaKeywords:    splitKeywords(doc.Find(`meta[name="news_keywords"]`).First().AttrOr("content", "")),
		MetaData:        meta,
	}

	var base *url.URL
	if u, perr := url.Parse(pageURL); perr == nil && u.Host != "" {
		base = u
	}
	article, rerr := readability.FromReader(bytes.NewReader(html), base)
	if rerr == nil {
		page.Title = strings.TrimSpace(article.Title)
		page.Text = normalizeText(article.TextContent)
		page.PublishDate = article.PublishedTime
	}
	if page.Title == "" {
		page.Title = firstNonEmpty(meta["og:title"], strings.TrimSpace(doc.Find("title").First().Text()))
	}
	if page.Text == "" {
		page.Text = bodyText(doc)
	}
	if page.Title == "" && page.Text == "" {
		return crawler.ParsedPage{}, ErrNoContent
	}
	if page.PublishDate == nil {
		page.PublishDate = metaPublishDate(meta)
	}

	page.Keywords = Keywords(page.Title+"\n"+page.Text, p.cfg.MaxKeywords)
	page.Summary = Summarize(page.Title, page.Text, p.cfg.SummarySentences)
	return page, nil
}

// metaData maps meta name, property or itemprop to content; the first tag wins.
func metaData(doc *goquery.Document) map[string]string {
	out := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok {
			return
		}
		for _, attr := range []string{"name", "property", "itemprop"} {
			key := strings.TrimSpace(s.AttrOr(attr, ""))
			if key == "" {
				continue
			}
			if _, exists := out[key]; !exists {
				out[key] = strings.TrimSpace(content)
			}
			return
		}
	})
	return out
}

func metaPublishDate(meta map[string]string) *time.Time {
	for _, key := range publishDateKeys {
		raw := meta[key]
		if raw == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	return nil
}

func splitKeywords(raw string) []string {
	var out []string
	for _, kw := range strings.Split(raw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// normalizeText trims every line and joins non-empty lines as paragraphs.
func normalizeText(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n\n")
}

func bodyText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, nav, header, footer").Remove()
	var paragraphs []string
	body.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.Join(strings.Fields(s.Text()), " "); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n")
	}
	return normalizeText(body.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
