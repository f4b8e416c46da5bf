// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

const defaultTable = "articles"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ArticleStoreConfig controls the Postgres connection pool used for article rows.
type ArticleStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// ArticleStore writes harvested articles into Postgres.
type ArticleStore struct {
	pool  execCloser
	table string
	query string
}

// NewArticleStore connects a pool using the provided config.
func NewArticleStore(ctx context.Context, cfg ArticleStoreConfig) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("output.postgres_dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ArticleStore{pool: pool, table: table, query: insertQuery(table)}, nil
}

// NewArticleStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewArticleStoreWithPool(pool execCloser, table string) (*ArticleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &ArticleStore{pool: pool, table: name, query: insertQuery(name)}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

func insertQuery(table string) string {
	return fmt.Sprintf(`
INSERT INTO %s (
	crawl_id,
	url,
	headline,
	content,
	summary,
	keywords,
	companies,
	article_date,
	capture_timestamp,
	archive_url,
	content_hash,
	harvested_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
ON CONFLICT (crawl_id, url) DO NOTHING`, table)
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StoreArticles inserts one row per article and returns how many were new.
// It stops at the first failing insert.
func (s *ArticleStore) StoreArticles(ctx context.Context, articles []crawler.StoredArticle) (int64, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("article store is not configured")
	}
	var inserted int64
	for _, a := range articles {
		if a.CrawlID == "" {
			return inserted, fmt.Errorf("crawl id is required")
		}
		tag, err := s.pool.Exec(ctx, s.query,
			a.CrawlID,
			a.URL,
			a.Headline,
			a.Content,
			a.Summary,
			a.KeywordList(),
			a.CompanyList(),
			a.Date,
			a.Timestamp,
			a.ArchiveURL,
			a.ContentHash,
			a.HarvestedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert article %s: %w", a.URL, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}
