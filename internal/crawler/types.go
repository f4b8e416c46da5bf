package crawler

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// DateLayout is the day format used by the CLI and the snapshot index query.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ErrInvalidDateRange is returned when Start falls after End.
var ErrInvalidDateRange = errors.New("date range start is after end")

// Validate reports whether the range is well formed.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// SnapshotRecord is one row returned by the snapshot index.
type SnapshotRecord struct {
	Timestamp   string `json:"timestamp"`
	OriginalURL string `json:"original"`
}

// Day returns the YYYYMMDD prefix of the capture timestamp.
func (r SnapshotRecord) Day() string {
	if len(r.Timestamp) < 8 {
		return r.Timestamp
	}
	return r.Timestamp[:8]
}

// SampledRecord is a capture paired with a topic section page to fetch.
type SampledRecord struct {
	Timestamp   string `json:"timestamp"`
	SnapshotURL string `json:"snapshot_url"`
}

// CandidateLink is an article-looking link found on an archived page.
type CandidateLink struct {
	RawURL    string
	Timestamp string
}

// ArticleVariantGroup holds every raw URL that resolves to the same article.
type ArticleVariantGroup struct {
	CanonicalKey string
	Variants     []string
}

// ArticleRecord is the normalized output for one article.
type ArticleRecord struct {
	Headline   string `json:"headline"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	Keywords   string `json:"keywords"`
	Companies  string `json:"companies"`
	Date       string `json:"date"`
	URL        string `json:"url"`
	Timestamp  string `json:"timestamp"`
	ArchiveURL string `json:"archive_url"`
}

// KeywordList splits the comma-joined keyword field.
func (a ArticleRecord) KeywordList() []string {
	return splitList(a.Keywords)
}

// CompanyList splits the comma-joined company field.
func (a ArticleRecord) CompanyList() []string {
	return splitList(a.Companies)
}

func splitList(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// ParsedPage is what a PageParser extracts from an article page.
type ParsedPage struct {
	Title           string
	Text            string
	Summary         string
	Keywords        []string
	MetaDescription string
	MetaKeywords    []string
	MetaData        map[string]string
	PublishDate     *time.Time
}

// CrawlStats summarizes one pipeline run.
type CrawlStats struct {
	Snapshots      int           `json:"snapshots"`
	SampledPages   int           `json:"sampled_pages"`
	PagesFetched   int           `json:"pages_fetched"`
	PagesFailed    int           `json:"pages_failed"`
	CandidateLinks int           `json:"candidate_links"`
	Groups         int           `json:"groups"`
	Articles       int           `json:"articles"`
	Duration       time.Duration `json:"duration"`
	Interrupted    bool          `json:"interrupted"`
}

// StoredArticle is one article row tied to the crawl that produced it.
type StoredArticle struct {
	ArticleRecord
	CrawlID     string
	ContentHash string
	HarvestedAt time.Time
}

// CrawlSummary is published once a crawl's results are persisted.
type CrawlSummary struct {
	CrawlID     string     `json:"crawl_id"`
	Site        string     `json:"site"`
	Start       string     `json:"start"`
	End         string     `json:"end"`
	Location    string     `json:"location"`
	ContentHash string     `json:"content_hash"`
	StoredRows  int64      `json:"stored_rows"`
	HarvestedAt time.Time  `json:"harvested_at"`
	Stats       CrawlStats `json:"stats"`
}
