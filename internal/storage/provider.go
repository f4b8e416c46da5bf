// Package storage selects the blob store crawl output is written to.
// This keeps the CLI independent of a specific backend (local filesystem,
// Google Cloud Storage, or memory).
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/storage/gcs"
	"github.com/JakeFAU/wayback-news-harvester/internal/storage/local"
	"github.com/JakeFAU/wayback-news-harvester/internal/storage/memory"
)

// Provider names accepted by output.provider.
const (
	ProviderLocal  = "local"
	ProviderGCS    = "gcs"
	ProviderMemory = "memory"
	ProviderNone   = "none"
)

// Config picks and configures a blob store.
type Config struct {
	Provider  string
	Dir       string
	GCSBucket string
	GCSPrefix string
}

// NewBlobStore builds the configured store. ProviderNone yields a nil store,
// which callers treat as "do not persist documents". The returned close
// function is never nil.
func NewBlobStore(ctx context.Context, cfg Config) (crawler.BlobStore, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Dir})
		if err != nil {
			return nil, noop, fmt.Errorf("local blob store: %w", err)
		}
		return store, noop, nil
	case ProviderGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.GCSBucket, Prefix: cfg.GCSPrefix})
		if err != nil {
			return nil, noop, fmt.Errorf("gcs blob store: %w", err)
		}
		return store, store.Close, nil
	case ProviderMemory:
		return memory.NewBlobStore(), noop, nil
	case ProviderNone:
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown output provider %q", cfg.Provider)
	}
}
