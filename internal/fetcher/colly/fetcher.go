// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
)

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Retry     crawler.RetryConfig
}

// Throttler delays a request before it is issued.
type Throttler interface {
	Wait(ctx context.Context, url string) error
}

// Fetcher implements crawler.Fetcher using the Colly collector. All fetches
// share one transport and one http.Client configured in New.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	throttle      Throttler
	retry         *crawler.ExponentialRetryPolicy
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. A nil throttle disables the pre-request delay.
func New(cfg Config, throttle Throttler, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		throttle:      throttle,
		retry:         crawler.NewExponentialRetryPolicy(cfg.Retry),
		logger:        logger.Named("fetcher"),
	}
}

// Fetch throttles once, then GETs url, retrying transport errors and
// retryable statuses with exponential backoff. Any non-2xx outcome is
// returned as a *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (crawler.FetchResponse, error) {
	start := time.Now()
	if f.throttle != nil {
		if err := f.throttle.Wait(ctx, url); err != nil {
			return crawler.FetchResponse{}, &crawler.FetchError{URL: url, Err: err}
		}
	}

	for retries := 0; ; retries++ {
		attempt := retries + 1
		result, err := f.attempt(ctx, url)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil || !f.retry.ShouldRetry(err, retries) {
				metrics.ObserveFetch(url, "transport_error", time.Since(start), 0)
				return crawler.FetchResponse{}, &crawler.FetchError{URL: url, Attempts: attempt, Err: err}
			}
			wait = f.retry.Backoff(attempt)
			f.logger.Debug("Retrying after transport error",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Duration("backoff", wait), zap.Error(err))
		case result.StatusCode >= 200 && result.StatusCode < 300:
			result.Attempts = attempt
			result.Duration = time.Since(start)
			metrics.ObserveFetch(url, "ok", result.Duration, len(result.Body))
			return result, nil
		case f.retry.ShouldRetryStatus(result.StatusCode, retries):
			wait = max(f.retry.Backoff(attempt), min(retryAfter(result.Headers, time.Now()), f.retry.MaxBackoff()))
			f.logger.Debug("Retrying after status",
				zap.String("url", url), zap.Int("status", result.StatusCode),
				zap.Int("attempt", attempt), zap.Duration("backoff", wait))
		default:
			metrics.ObserveFetch(url, "http_error", time.Since(start), len(result.Body))
			return crawler.FetchResponse{}, &crawler.FetchError{URL: url, StatusCode: result.StatusCode, Attempts: attempt}
		}

		metrics.ObserveRetry(url, result.StatusCode)
		if err := crawler.Pause(ctx, wait); err != nil {
			return crawler.FetchResponse{}, &crawler.FetchError{
				URL: url, StatusCode: result.StatusCode, Attempts: attempt, Err: err,
			}
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	collector := f.buildCollector(ctx, time.Now(), &result, &fetchErr)
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return crawler.FetchResponse{}, err
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.UserAgent = f.cfg.UserAgent
	collector.Context = ctx
	f.configureCollectorHooks(collector, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date.
func retryAfter(h http.Header, now time.Time) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
}
