// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal         *prometheus.CounterVec
	fetchRetriesTotal          *prometheus.CounterVec
	fetchRateLimitedTotal      *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	fetchBytesTotal            *prometheus.CounterVec
	throttleDelaySeconds       *prometheus.HistogramVec
	snapshotsTotal             prometheus.Counter
	pagesTotal                 *prometheus.CounterVec
	linksDiscoveredTotal       prometheus.Counter
	articlesTotal              *prometheus.CounterVec
	activeWorkers              prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_requests_total",
				Help: "Total number of fetch calls, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_retries_total",
				Help: "Total number of retried fetch attempts, labeled by site.",
			},
			[]string{"site"},
		)

		fetchRateLimitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_rate_limited_total",
				Help: "Total number of 429 responses, labeled by site.",
			},
			[]string{"site"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies including retries.",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"site"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_bytes_total",
				Help: "Total number of body bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		throttleDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_throttle_delay_seconds",
				Help:    "Histogram of pre-request throttle waits.",
				Buckets: []float64{0.1, 0.5, 1, 1.5, 2, 5, 10},
			},
			[]string{"domain"},
		)

		snapshotsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_snapshots_total",
				Help: "Total number of snapshot index rows received.",
			},
		)

		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total number of archived section pages processed, labeled by status.",
			},
			[]string{"status"},
		)

		linksDiscoveredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_links_discovered_total",
				Help: "Total number of candidate article links discovered.",
			},
		)

		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_articles_total",
				Help: "Total number of article groups processed, labeled by status.",
			},
			[]string{"status"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_active_workers",
				Help: "Number of workers currently processing a task.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records the outcome of one logical fetch.
func ObserveFetch(rawURL, outcome string, duration time.Duration, bytesFetched int) {
	Init()
	site := SanitizeSite(rawURL)
	fetchRequestsTotal.WithLabelValues(site, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(site).Add(float64(bytesFetched))
	}
}

// ObserveRetry counts one retried attempt; 429 responses are tallied separately.
func ObserveRetry(rawURL string, status int) {
	Init()
	site := SanitizeSite(rawURL)
	fetchRetriesTotal.WithLabelValues(site).Inc()
	if status == http.StatusTooManyRequests {
		fetchRateLimitedTotal.WithLabelValues(site).Inc()
	}
}

// ObserveThrottleDelay records the duration of a throttle wait.
func ObserveThrottleDelay(domain string, duration time.Duration) {
	Init()
	throttleDelaySeconds.WithLabelValues(domain).Observe(duration.Seconds())
}

// AddSnapshots counts snapshot index rows.
func AddSnapshots(n int) {
	Init()
	snapshotsTotal.Add(float64(n))
}

// ObservePage counts one section page by status ("fetched" or "failed").
func ObservePage(status string) {
	Init()
	pagesTotal.WithLabelValues(status).Inc()
}

// AddLinks counts discovered candidate links.
func AddLinks(n int) {
	Init()
	linksDiscoveredTotal.Add(float64(n))
}

// ObserveArticle counts one article group by status ("extracted" or "failed").
func ObserveArticle(status string) {
	Init()
	articlesTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
