// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
)

// EnvPrefix namespaces environment overrides, e.g. HARVESTER_CRAWL_WORKERS=5.
const EnvPrefix = "HARVESTER"

var outputProviders = []string{"local", "gcs", "memory", "none"}

// Config captures all harvester configuration knobs loaded via Viper.
type Config struct {
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Wayback   WaybackConfig   `mapstructure:"wayback"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Output    OutputConfig    `mapstructure:"output"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlConfig describes what to harvest.
type CrawlConfig struct {
	Site       string        `mapstructure:"site"`
	Start      string        `mapstructure:"start"`
	End        string        `mapstructure:"end"`
	Topics     []string      `mapstructure:"topics"`
	Workers    int           `mapstructure:"workers"`
	Captures   int           `mapstructure:"captures"`
	SampleSeed uint64        `mapstructure:"sample_seed"`
	Deadline   time.Duration `mapstructure:"deadline"`
}

// HTTPConfig configures the fetcher's client and retry behavior.
type HTTPConfig struct {
	UserAgent     string        `mapstructure:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BackoffFactor time.Duration `mapstructure:"backoff_factor"`
	BackoffMax    time.Duration `mapstructure:"backoff_max"`
}

// RateLimitConfig sets the randomized pre-request delay and optional token bucket.
type RateLimitConfig struct {
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
	RPS      float64       `mapstructure:"rps"`
	Burst    int           `mapstructure:"burst"`
}

// WaybackConfig points at the snapshot index and archive.
type WaybackConfig struct {
	CDXEndpoint string `mapstructure:"cdx_endpoint"`
	ArchiveBase string `mapstructure:"archive_base"`
}

// DiscoveryConfig overrides the link exclusion list.
type DiscoveryConfig struct {
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
}

// ParserConfig tunes keyword and summary extraction.
type ParserConfig struct {
	MaxKeywords      int `mapstructure:"max_keywords"`
	SummarySentences int `mapstructure:"summary_sentences"`
}

// OutputConfig selects where crawl results go.
type OutputConfig struct {
	Provider         string `mapstructure:"provider"`
	Dir              string `mapstructure:"dir"`
	GCSBucket        string `mapstructure:"gcs_bucket"`
	GCSPrefix        string `mapstructure:"gcs_prefix"`
	ContentType      string `mapstructure:"content_type"`
	PostgresDSN      string `mapstructure:"postgres_dsn"`
	PostgresTable    string `mapstructure:"postgres_table"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
}

// PubSubConfig holds metadata for completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig enables the status server when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features and the minimum level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// NewViper returns a Viper instance with defaults and environment overrides
// applied, ready for flag binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads the optional config file into v and builds a validated Config.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = NewViper()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.site", "www.marketwatch.com")
	v.SetDefault("crawl.start", "")
	v.SetDefault("crawl.end", "")
	v.SetDefault("crawl.topics", []string{})
	v.SetDefault("crawl.workers", 3)
	v.SetDefault("crawl.captures", -1)
	v.SetDefault("crawl.sample_seed", 42)
	v.SetDefault("crawl.deadline", time.Duration(0))
	v.SetDefault("http.user_agent", "Mozilla/5.0")
	v.SetDefault("http.timeout", 10*time.Second)
	v.SetDefault("http.max_retries", 8)
	v.SetDefault("http.backoff_factor", 2*time.Second)
	v.SetDefault("http.backoff_max", 120*time.Second)
	v.SetDefault("rate_limit.min_delay", time.Second)
	v.SetDefault("rate_limit.max_delay", 2*time.Second)
	v.SetDefault("rate_limit.rps", 0.0)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("wayback.cdx_endpoint", "https://web.archive.org/cdx/search/cdx")
	v.SetDefault("wayback.archive_base", crawler.ArchiveBase)
	v.SetDefault("discovery.exclude_patterns", []string{})
	v.SetDefault("parser.max_keywords", 10)
	v.SetDefault("parser.summary_sentences", 5)
	v.SetDefault("output.provider", "local")
	v.SetDefault("output.dir", "data")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_prefix", "")
	v.SetDefault("output.content_type", "application/json; charset=utf-8")
	v.SetDefault("output.postgres_dsn", "")
	v.SetDefault("output.postgres_table", "articles")
	v.SetDefault("output.postgres_max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Crawl.Site) == "" {
		return fmt.Errorf("crawl.site must be set")
	}
	if _, err := c.DateRange(); err != nil {
		return err
	}
	if c.Crawl.Workers <= 0 {
		return fmt.Errorf("crawl.workers must be > 0")
	}
	if c.Crawl.Captures < -1 {
		return fmt.Errorf("crawl.captures must be >= -1")
	}
	if c.Crawl.Deadline < 0 {
		return fmt.Errorf("crawl.deadline must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffFactor < 0 || c.HTTP.BackoffMax < 0 {
		return fmt.Errorf("http.backoff_factor and http.backoff_max must be >= 0")
	}
	if c.RateLimit.MinDelay < 0 || c.RateLimit.MaxDelay < c.RateLimit.MinDelay {
		return fmt.Errorf("rate_limit.max_delay must be >= rate_limit.min_delay >= 0")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be >= 0")
	}
	if !slices.Contains(outputProviders, strings.ToLower(c.Output.Provider)) {
		return fmt.Errorf("output.provider must be one of %s", strings.Join(outputProviders, ", "))
	}
	if strings.EqualFold(c.Output.Provider, "local") && strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir must be set when output.provider is local")
	}
	if strings.EqualFold(c.Output.Provider, "gcs") && c.Output.GCSBucket == "" {
		return fmt.Errorf("output.gcs_bucket must be set when output.provider is gcs")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	return nil
}

// DateRange parses crawl.start and crawl.end as an inclusive day range.
func (c Config) DateRange() (crawler.DateRange, error) {
	if c.Crawl.Start == "" || c.Crawl.End == "" {
		return crawler.DateRange{}, fmt.Errorf("crawl.start and crawl.end must be set (YYYY-MM-DD)")
	}
	start, err := time.Parse(crawler.DateLayout, c.Crawl.Start)
	if err != nil {
		return crawler.DateRange{}, fmt.Errorf("crawl.start must be YYYY-MM-DD: %w", err)
	}
	end, err := time.Parse(crawler.DateLayout, c.Crawl.End)
	if err != nil {
		return crawler.DateRange{}, fmt.Errorf("crawl.end must be YYYY-MM-DD: %w", err)
	}
	dr := crawler.DateRange{Start: start, End: end}
	if err := dr.Validate(); err != nil {
		return crawler.DateRange{}, fmt.Errorf("crawl.start must not be after crawl.end: %w", err)
	}
	return dr, nil
}

// RetryConfig converts the HTTP section into the fetcher's retry settings.
func (c Config) RetryConfig() crawler.RetryConfig {
	return crawler.RetryConfig{
		MaxRetries:    c.HTTP.MaxRetries,
		BackoffFactor: c.HTTP.BackoffFactor,
		MaxBackoff:    c.HTTP.BackoffMax,
	}
}
