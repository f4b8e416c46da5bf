package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher performs one throttled, retried GET.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// PageParser turns article HTML into structured fields.
type PageParser interface {
	Parse(html []byte, pageURL string) (ParsedPage, error)
}

// BlobStore persists crawl output documents and returns their URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// ArticleStore writes article rows and reports how many were inserted.
type ArticleStore interface {
	StoreArticles(ctx context.Context, articles []StoredArticle) (int64, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces crawl IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
