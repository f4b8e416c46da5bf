// Package pipeline drives one crawl from the snapshot index through link
// discovery to article extraction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/clock/system"
	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/discovery"
	"github.com/JakeFAU/wayback-news-harvester/internal/dispatcher"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
	"github.com/JakeFAU/wayback-news-harvester/internal/wayback"
)

// ErrAlreadyRan is returned when Run is called on a used Orchestrator.
var ErrAlreadyRan = errors.New("pipeline already ran")

// State is the orchestrator's position in the crawl.
type State int32

// Crawl states, in the only order they are entered.
const (
	StateIdle State = iota
	StateFetchingIndex
	StateDiscoveringLinks
	StateExtractingArticles
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingIndex:
		return "fetching_index"
	case StateDiscoveringLinks:
		return "discovering_links"
	case StateExtractingArticles:
		return "extracting_articles"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// IndexClient looks up captures and maps sampled records to archive URLs.
type IndexClient interface {
	Query(ctx context.Context, site string, dr crawler.DateRange) []crawler.SnapshotRecord
	ArchiveURL(rec crawler.SampledRecord) string
}

// LinkExtractor finds candidate article links in page HTML.
type LinkExtractor interface {
	Extract(html []byte) ([]crawler.CandidateLink, error)
}

// ArticleExtractor turns a variant group into one record.
type ArticleExtractor interface {
	Extract(ctx context.Context, group crawler.ArticleVariantGroup) (crawler.ArticleRecord, bool)
}

// Config describes one crawl.
type Config struct {
	Site     string
	Range    crawler.DateRange
	Topics   []string
	Workers  int
	Captures int
	Seed     uint64
	Deadline time.Duration
}

// Deps are the collaborators a crawl runs against.
type Deps struct {
	Index    IndexClient
	Fetcher  crawler.Fetcher
	Links    LinkExtractor
	Articles ArticleExtractor
	Clock    crawler.Clock
}

// Orchestrator runs a single crawl and keeps its intermediate results.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	state atomic.Int32

	mu       sync.RWMutex
	records  []crawler.SnapshotRecord
	sampled  []crawler.SampledRecord
	groups   []crawler.ArticleVariantGroup
	articles []crawler.ArticleRecord
	stats    crawler.CrawlStats
}

// New builds an Orchestrator. Missing topics fall back to the default
// section list and a missing clock to the system clock.
func New(cfg Config, deps Deps, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Topics) == 0 {
		cfg.Topics = wayback.DefaultTopics
	}
	if cfg.Workers <= 0 {
		cfg.Workers = dispatcher.DefaultWorkers
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: logger.Named("pipeline")}
}

// State reports the current crawl state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Records returns the snapshot records returned by the index.
func (o *Orchestrator) Records() []crawler.SnapshotRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.records
}

// Sampled returns the section pages visited during discovery.
func (o *Orchestrator) Sampled() []crawler.SampledRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sampled
}

// Groups returns the aggregated article variant groups.
func (o *Orchestrator) Groups() []crawler.ArticleVariantGroup {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.groups
}

// Articles returns the extracted records in completion order.
func (o *Orchestrator) Articles() []crawler.ArticleRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.articles
}

// Stats summarizes the crawl so far.
func (o *Orchestrator) Stats() crawler.CrawlStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.stats
}

// Run executes the crawl once. Cancellation or an expired deadline stops
// dispatching new work; whatever was collected stays available and Run
// still returns nil, flagging the stats as interrupted.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.state.CompareAndSwap(int32(StateIdle), int32(StateFetchingIndex)) {
		return ErrAlreadyRan
	}
	if err := o.cfg.Range.Validate(); err != nil {
		o.state.Store(int32(StateDone))
		return fmt.Errorf("run crawl: %w", err)
	}
	if o.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Deadline)
		defer cancel()
	}

	start := o.deps.Clock.Now()
	defer func() {
		o.mu.Lock()
		o.stats.Duration = o.deps.Clock.Now().Sub(start)
		o.stats.Interrupted = ctx.Err() != nil
		o.mu.Unlock()
		o.state.Store(int32(StateDone))
	}()

	sampled := o.fetchIndex(ctx)
	if len(sampled) == 0 {
		o.logger.Info("Nothing to discover", zap.String("site", o.cfg.Site))
		return nil
	}

	o.state.Store(int32(StateDiscoveringLinks))
	groups := o.discover(ctx, sampled)
	if len(groups) == 0 {
		o.logger.Info("No article links discovered", zap.Int("pages", len(sampled)))
		return nil
	}

	o.state.Store(int32(StateExtractingArticles))
	o.extract(ctx, groups)
	if ctx.Err() != nil {
		o.logger.Warn("Crawl interrupted", zap.Error(ctx.Err()))
	}
	return nil
}

func (o *Orchestrator) fetchIndex(ctx context.Context) []crawler.SampledRecord {
	records := o.deps.Index.Query(ctx, o.cfg.Site, o.cfg.Range)
	sampled := wayback.FanOut(wayback.Sample(records, o.cfg.Captures, o.cfg.Seed), o.cfg.Topics)

	o.mu.Lock()
	o.records = records
	o.sampled = sampled
	o.stats.Snapshots = len(records)
	o.stats.SampledPages = len(sampled)
	o.mu.Unlock()

	o.logger.Info("Snapshot index loaded",
		zap.Int("records", len(records)),
		zap.Int("pages", len(sampled)),
		zap.Int("topics", len(o.cfg.Topics)))
	return sampled
}

// discover merges page results in sampled order so grouping does not depend
// on fetch latency.
func (o *Orchestrator) discover(ctx context.Context, sampled []crawler.SampledRecord) []crawler.ArticleVariantGroup {
	var fetched, failed atomic.Int64
	perPage := dispatcher.Collect(ctx, o.cfg.Workers, sampled,
		func(ctx context.Context, rec crawler.SampledRecord) ([]crawler.CandidateLink, bool) {
			links, ok := o.discoverPage(ctx, rec)
			if ok {
				fetched.Add(1)
			} else {
				failed.Add(1)
			}
			return links, ok
		})

	var links []crawler.CandidateLink
	for _, pageLinks := range perPage {
		links = append(links, pageLinks...)
	}
	groups := discovery.Aggregate(links)
	metrics.AddLinks(len(links))

	o.mu.Lock()
	o.groups = groups
	o.stats.PagesFetched = int(fetched.Load())
	o.stats.PagesFailed = int(failed.Load())
	o.stats.CandidateLinks = len(links)
	o.stats.Groups = len(groups)
	o.mu.Unlock()

	o.logger.Info("Link discovery finished",
		zap.Int64("pages_fetched", fetched.Load()),
		zap.Int64("pages_failed", failed.Load()),
		zap.Int("links", len(links)),
		zap.Int("groups", len(groups)))
	return groups
}

func (o *Orchestrator) discoverPage(ctx context.Context, rec crawler.SampledRecord) ([]crawler.CandidateLink, bool) {
	pageURL := o.deps.Index.ArchiveURL(rec)
	resp, err := o.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		metrics.ObservePage("failed")
		o.logger.Warn("Failed to fetch section page", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	if resp.StatusCode != http.StatusOK {
		metrics.ObservePage("failed")
		o.logger.Warn("Unexpected section page status", zap.String("url", pageURL), zap.Int("status", resp.StatusCode))
		return nil, false
	}
	links, err := o.deps.Links.Extract(resp.Body)
	if err != nil {
		metrics.ObservePage("failed")
		o.logger.Error("Error processing section page", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	metrics.ObservePage("fetched")
	o.logger.Debug("Section page processed", zap.String("url", pageURL), zap.Int("links", len(links)))
	return links, true
}

func (o *Orchestrator) extract(ctx context.Context, groups []crawler.ArticleVariantGroup) {
	results := dispatcher.Run(ctx, o.cfg.Workers, groups, o.deps.Articles.Extract)
	for res := range results {
		o.mu.Lock()
		o.articles = append(o.articles, res.Value)
		o.stats.Articles = len(o.articles)
		o.mu.Unlock()
	}
	o.logger.Info("Article extraction finished",
		zap.Int("groups", len(groups)),
		zap.Int("articles", o.Stats().Articles))
}
