// Package wayback queries the Wayback Machine snapshot index and turns its
// rows into the section pages a crawl visits.
package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
)

// DefaultCDXEndpoint is the public snapshot index.
const DefaultCDXEndpoint = "https://web.archive.org/cdx/search/cdx"

const cdxDateLayout = "20060102"

// Config controls the snapshot index client.
type Config struct {
	Endpoint    string
	ArchiveBase string
}

// Client retrieves snapshot records through a rate limited fetcher.
type Client struct {
	fetcher crawler.Fetcher
	cfg     Config
	logger  *zap.Logger
}

// New builds a Client.
func New(fetcher crawler.Fetcher, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultCDXEndpoint
	}
	if cfg.ArchiveBase == "" {
		cfg.ArchiveBase = crawler.ArchiveBase
	}
	return &Client{fetcher: fetcher, cfg: cfg, logger: logger.Named("wayback")}
}

// QueryURL builds the index request for site over the inclusive range.
func QueryURL(endpoint, site string, dr crawler.DateRange) string {
	q := url.Values{}
	q.Set("url", site)
	q.Set("fl", "timestamp,original")
	q.Set("from", dr.Start.Format(cdxDateLayout))
	q.Set("to", dr.End.Format(cdxDateLayout))
	q.Set("output", "json")
	q.Add("filter", "mimetype:text/html")
	q.Add("filter", "statuscode:200")
	q.Set("collapse", "digest")
	return endpoint + "?" + q.Encode()
}

// Query returns every HTML capture of site with status 200 in the range.
// Fetch or decode failures and empty indexes yield an empty slice.
func (c *Client) Query(ctx context.Context, site string, dr crawler.DateRange) []crawler.SnapshotRecord {
	queryURL := QueryURL(c.cfg.Endpoint, site, dr)
	resp, err := c.fetcher.Fetch(ctx, queryURL)
	if err != nil {
		c.logger.Error("Failed to fetch snapshot index", zap.String("url", queryURL), zap.Error(err))
		return nil
	}
	records, err := decodeRows(resp.Body)
	if err != nil {
		c.logger.Error("Failed to decode snapshot index", zap.String("url", queryURL), zap.Error(err))
		return nil
	}
	if len(records) == 0 {
		c.logger.Warn("No snapshot records found",
			zap.String("site", site),
			zap.String("from", dr.Start.Format(crawler.DateLayout)),
			zap.String("to", dr.End.Format(crawler.DateLayout)))
		return nil
	}
	metrics.AddSnapshots(len(records))
	c.logger.Info("Retrieved snapshot records", zap.String("site", site), zap.Int("records", len(records)))
	return records
}

// ArchiveURL returns the archived page URL for a sampled record.
func (c *Client) ArchiveURL(rec crawler.SampledRecord) string {
	return crawler.ArchiveURL(c.cfg.ArchiveBase, rec.Timestamp, rec.SnapshotURL)
}

// decodeRows parses the row-oriented JSON table, dropping the header row and
// rows with fewer than two columns.
func decodeRows(body []byte) ([]crawler.SnapshotRecord, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal cdx rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	records := make([]crawler.SnapshotRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		records = append(records, crawler.SnapshotRecord{Timestamp: row[0], OriginalURL: row[1]})
	}
	return records, nil
}
