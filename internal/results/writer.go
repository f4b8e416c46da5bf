// Package results persists the articles of a finished crawl and announces
// where they went.
package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

// DefaultContentType is used for the crawl document.
const DefaultContentType = "application/json; charset=utf-8"

// Config controls Writer behavior.
type Config struct {
	ContentType string
	Topic       string
}

// Crawl is everything a finished crawl hands over for persistence.
type Crawl struct {
	ID       string
	Site     string
	Range    crawler.DateRange
	Stats    crawler.CrawlStats
	Articles []crawler.ArticleRecord
}

// Writer stores the crawl document, optional article rows and publishes a
// summary. Any of blobs, articles or publisher may be nil to skip that step.
type Writer struct {
	blobs     crawler.BlobStore
	articles  crawler.ArticleStore
	publisher crawler.Publisher
	hasher    crawler.Hasher
	clock     crawler.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Writer.
func New(
	blobs crawler.BlobStore,
	articles crawler.ArticleStore,
	publisher crawler.Publisher,
	hasher crawler.Hasher,
	clock crawler.Clock,
	cfg Config,
	logger *zap.Logger,
) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ContentType == "" {
		cfg.ContentType = DefaultContentType
	}
	return &Writer{
		blobs:     blobs,
		articles:  articles,
		publisher: publisher,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger.Named("results"),
	}
}

// ObjectPath names the crawl document.
func ObjectPath(site string, dr crawler.DateRange, crawlID string) string {
	site = strings.NewReplacer("/", "_", ":", "_").Replace(strings.Trim(site, "/"))
	return fmt.Sprintf("%s_%s_%s_%s.json",
		site, dr.Start.Format(crawler.DateLayout), dr.End.Format(crawler.DateLayout), crawlID)
}

// Encode renders articles as an indented JSON array without HTML escaping.
// A crawl without articles encodes as [].
func Encode(articles []crawler.ArticleRecord) ([]byte, error) {
	if articles == nil {
		articles = []crawler.ArticleRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}
	return buf.Bytes(), nil
}

// Write persists the crawl and returns the published summary.
func (w *Writer) Write(ctx context.Context, crawl Crawl) (crawler.CrawlSummary, error) {
	summary := crawler.CrawlSummary{
		CrawlID:     crawl.ID,
		Site:        crawl.Site,
		Start:       crawl.Range.Start.Format(crawler.DateLayout),
		End:         crawl.Range.End.Format(crawler.DateLayout),
		HarvestedAt: w.clock.Now(),
		Stats:       crawl.Stats,
	}

	body, err := Encode(crawl.Articles)
	if err != nil {
		return summary, err
	}
	summary.ContentHash, err = w.hasher.Hash(body)
	if err != nil {
		return summary, fmt.Errorf("hash crawl document: %w", err)
	}

	if w.blobs != nil {
		path := ObjectPath(crawl.Site, crawl.Range, crawl.ID)
		summary.Location, err = w.blobs.PutObject(ctx, path, w.cfg.ContentType, bytes.NewReader(body))
		if err != nil {
			return summary, fmt.Errorf("put object: %w", err)
		}
		w.logger.Info("Crawl document stored",
			zap.String("crawl_id", crawl.ID),
			zap.String("location", summary.Location),
			zap.Int("articles", len(crawl.Articles)))
	}

	if w.articles != nil && len(crawl.Articles) > 0 {
		rows, err := w.storedArticles(crawl.ID, summary, crawl.Articles)
		if err != nil {
			return summary, err
		}
		summary.StoredRows, err = w.articles.StoreArticles(ctx, rows)
		if err != nil {
			return summary, fmt.Errorf("store articles: %w", err)
		}
		w.logger.Info("Article rows stored", zap.String("crawl_id", crawl.ID), zap.Int64("rows", summary.StoredRows))
	}

	if err := w.publish(ctx, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func (w *Writer) storedArticles(
	crawlID string,
	summary crawler.CrawlSummary,
	articles []crawler.ArticleRecord,
) ([]crawler.StoredArticle, error) {
	rows := make([]crawler.StoredArticle, 0, len(articles))
	for _, a := range articles {
		hash, err := w.hasher.Hash([]byte(a.Content))
		if err != nil {
			return nil, fmt.Errorf("hash article %s: %w", a.URL, err)
		}
		rows = append(rows, crawler.StoredArticle{
			ArticleRecord: a,
			CrawlID:       crawlID,
			ContentHash:   hash,
			HarvestedAt:   summary.HarvestedAt,
		})
	}
	return rows, nil
}

func (w *Writer) publish(ctx context.Context, summary crawler.CrawlSummary) error {
	if w.cfg.Topic == "" || w.publisher == nil {
		return nil
	}
	id, err := w.publisher.Publish(ctx, w.cfg.Topic, summary)
	if err != nil {
		return fmt.Errorf("publish summary: %w", err)
	}
	w.logger.Info("Crawl summary published",
		zap.String("crawl_id", summary.CrawlID),
		zap.String("topic", w.cfg.Topic),
		zap.String("message_id", id),
		zap.String("hash", summary.ContentHash))
	return nil
}
