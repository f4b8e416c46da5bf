package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/api"
	"github.com/JakeFAU/wayback-news-harvester/internal/article"
	"github.com/JakeFAU/wayback-news-harvester/internal/clock/system"
	"github.com/JakeFAU/wayback-news-harvester/internal/config"
	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/discovery"
	collyfetcher "github.com/JakeFAU/wayback-news-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/wayback-news-harvester/internal/hash/sha256"
	"github.com/JakeFAU/wayback-news-harvester/internal/logging"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
	"github.com/JakeFAU/wayback-news-harvester/internal/pageparser"
	"github.com/JakeFAU/wayback-news-harvester/internal/pipeline"
	"github.com/JakeFAU/wayback-news-harvester/internal/policy/ratelimit"
	pubsubpublisher "github.com/JakeFAU/wayback-news-harvester/internal/publisher/pubsub"
	"github.com/JakeFAU/wayback-news-harvester/internal/results"
	"github.com/JakeFAU/wayback-news-harvester/internal/storage"
	"github.com/JakeFAU/wayback-news-harvester/internal/storage/postgres"
	"github.com/JakeFAU/wayback-news-harvester/internal/wayback"
)

// summaryHeadlines is how many headlines the final log line previews.
const summaryHeadlines = 3

// crawlFunc runs one crawl for a validated configuration.
type crawlFunc func(ctx context.Context, cfg config.Config) error

// newCrawlCmd creates the 'crawl' subcommand. Flags override config file and
// environment values for the keys they are bound to.
func newCrawlCmd(v *viper.Viper, cfgFile *string, run crawlFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Harvest articles captured between two days",
		Long: `Queries the Wayback Machine snapshot index for the site, visits the
configured section pages of every (sampled) capture, groups the article links
found there and extracts one record per article. Results are written to the
configured output provider.`,
		Example: "  wayback-news-harvester crawl --start 2025-01-10 --end 2025-01-10 --captures 1",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, *cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("start", "", "first capture day, YYYY-MM-DD")
	flags.String("end", "", "last capture day (inclusive), YYYY-MM-DD")
	flags.String("site", v.GetString("crawl.site"), "site whose captures are harvested")
	flags.Int("workers", v.GetInt("crawl.workers"), "concurrent page fetches")
	flags.Int("captures", v.GetInt("crawl.captures"), "captures sampled per day and URL (-1 keeps all)")
	flags.StringSlice("topics", nil, "section paths visited on every capture (default: built-in MarketWatch sections)")
	flags.String("output-dir", v.GetString("output.dir"), "directory for the local output provider")

	for key, name := range map[string]string{
		"crawl.start":    "start",
		"crawl.end":      "end",
		"crawl.site":     "site",
		"crawl.workers":  "workers",
		"crawl.captures": "captures",
		"crawl.topics":   "topics",
		"output.dir":     "output-dir",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
	return cmd
}

// crawlWith binds runCrawl to the generator naming each crawl.
func crawlWith(ids crawler.IDGenerator) crawlFunc {
	return func(ctx context.Context, cfg config.Config) error {
		return runCrawl(ctx, cfg, ids)
	}
}

// runCrawl wires the harvester from cfg, runs one crawl and writes its results.
// SIGINT and SIGTERM stop the crawl early; whatever was collected is still written.
func runCrawl(ctx context.Context, cfg config.Config, ids crawler.IDGenerator) error {
	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.Init()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dr, err := cfg.DateRange()
	if err != nil {
		return err
	}
	crawlID, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("crawl id: %w", err)
	}
	logger = logger.With(zap.String("crawl_id", crawlID))

	clock := system.New()
	orch := buildOrchestrator(cfg, dr, clock, logger)

	writer, closeOutputs, err := buildWriter(ctx, cfg, clock, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeOutputs(); cerr != nil {
			logger.Warn("Failed to close outputs", zap.Error(cerr))
		}
	}()

	if cfg.Metrics.Addr != "" {
		srvCtx, cancelSrv := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			logger.Info("Status server started", zap.String("addr", cfg.Metrics.Addr))
			if serr := api.NewServer(crawlID, orch, logger).Serve(srvCtx, cfg.Metrics.Addr); serr != nil {
				logger.Error("Status server failed", zap.Error(serr))
			}
		}()
		defer func() {
			cancelSrv()
			<-done
		}()
	}

	logger.Info("Crawl started",
		zap.String("site", cfg.Crawl.Site),
		zap.String("start", cfg.Crawl.Start),
		zap.String("end", cfg.Crawl.End))
	if err := orch.Run(ctx); err != nil {
		return fmt.Errorf("run crawl: %w", err)
	}

	articles := orch.Articles()
	// Persist partial results of an interrupted crawl as well.
	summary, err := writer.Write(context.WithoutCancel(ctx), results.Crawl{
		ID:       crawlID,
		Site:     cfg.Crawl.Site,
		Range:    dr,
		Stats:    orch.Stats(),
		Articles: articles,
	})
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	logSummary(logger, summary, articles)
	return nil
}

func buildOrchestrator(
	cfg config.Config,
	dr crawler.DateRange,
	clock crawler.Clock,
	logger *zap.Logger,
) *pipeline.Orchestrator {
	throttle := ratelimit.New(ratelimit.Config{
		MinDelay:     cfg.RateLimit.MinDelay,
		MaxDelay:     cfg.RateLimit.MaxDelay,
		DefaultRPS:   cfg.RateLimit.RPS,
		DefaultBurst: cfg.RateLimit.Burst,
	})
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
		Retry:     cfg.RetryConfig(),
	}, throttle, logger)
	index := wayback.New(fetcher, wayback.Config{
		Endpoint:    cfg.Wayback.CDXEndpoint,
		ArchiveBase: cfg.Wayback.ArchiveBase,
	}, logger)
	parser := pageparser.New(pageparser.Config{
		MaxKeywords:      cfg.Parser.MaxKeywords,
		SummarySentences: cfg.Parser.SummarySentences,
	})

	return pipeline.New(pipeline.Config{
		Site:     cfg.Crawl.Site,
		Range:    dr,
		Topics:   cfg.Crawl.Topics,
		Workers:  cfg.Crawl.Workers,
		Captures: cfg.Crawl.Captures,
		Seed:     cfg.Crawl.SampleSeed,
		Deadline: cfg.Crawl.Deadline,
	}, pipeline.Deps{
		Index:    index,
		Fetcher:  fetcher,
		Links:    discovery.NewLinkExtractor(crawler.NewExclusionList(cfg.Discovery.ExcludePatterns)),
		Articles: article.New(fetcher, parser, logger),
		Clock:    clock,
	}, logger)
}

// buildWriter opens the configured outputs and returns a function releasing
// them. Outputs opened before a failure are closed again.
func buildWriter(
	ctx context.Context,
	cfg config.Config,
	clock crawler.Clock,
	logger *zap.Logger,
) (*results.Writer, func() error, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*results.Writer, func() error, error) {
		return nil, nil, errors.Join(err, closeAll())
	}

	blobs, closeBlobs, err := storage.NewBlobStore(ctx, storage.Config{
		Provider:  cfg.Output.Provider,
		Dir:       cfg.Output.Dir,
		GCSBucket: cfg.Output.GCSBucket,
		GCSPrefix: cfg.Output.GCSPrefix,
	})
	if err != nil {
		return fail(fmt.Errorf("init blob store: %w", err))
	}
	closers = append(closers, closeBlobs)

	var articles crawler.ArticleStore
	if cfg.Output.PostgresDSN != "" {
		store, err := postgres.NewArticleStore(ctx, postgres.ArticleStoreConfig{
			DSN:      cfg.Output.PostgresDSN,
			Table:    cfg.Output.PostgresTable,
			MaxConns: cfg.Output.PostgresMaxConns,
		})
		if err != nil {
			return fail(fmt.Errorf("init article store: %w", err))
		}
		closers = append(closers, func() error { store.Close(); return nil })
		articles = store
	}

	var publisher crawler.Publisher
	if cfg.PubSub.Topic != "" {
		pub, err := pubsubpublisher.Open(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fail(fmt.Errorf("init publisher: %w", err))
		}
		closers = append(closers, pub.Close)
		publisher = pub
	}

	writer := results.New(blobs, articles, publisher, sha256.New(), clock, results.Config{
		ContentType: cfg.Output.ContentType,
		Topic:       cfg.PubSub.Topic,
	}, logger)
	return writer, closeAll, nil
}

func logSummary(logger *zap.Logger, summary crawler.CrawlSummary, articles []crawler.ArticleRecord) {
	headlines := make([]string, 0, summaryHeadlines)
	for _, a := range articles {
		if len(headlines) == summaryHeadlines {
			break
		}
		headlines = append(headlines, a.Headline)
	}
	logger.Info("Crawl finished",
		zap.Int("articles", len(articles)),
		zap.Strings("headlines", headlines),
		zap.String("location", summary.Location),
		zap.Int64("stored_rows", summary.StoredRows),
		zap.Bool("interrupted", summary.Stats.Interrupted),
		zap.Duration("duration", summary.Stats.Duration))
}
