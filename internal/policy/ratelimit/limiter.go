// Package ratelimit throttles outbound fetches with a jittered per-call delay
// and an optional per-domain token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/wayback-news-harvester/internal/crawler"
	"github.com/JakeFAU/wayback-news-harvester/internal/metrics"
)

// Config holds throttle configuration.
type Config struct {
	// MinDelay and MaxDelay bound the uniform sleep taken before every call.
	MinDelay time.Duration
	MaxDelay time.Duration
	// DefaultRPS caps requests per domain across all workers; 0 disables the cap.
	DefaultRPS   float64
	DefaultBurst int
}

// Throttle delays callers before each outbound request.
type Throttle struct {
	minDelay time.Duration
	maxDelay time.Duration

	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	rng          func(n int64) int64
}

// New creates a new Throttle.
func New(cfg Config) *Throttle {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < cfg.MinDelay {
		maxDelay = cfg.MinDelay
	}
	return &Throttle{
		minDelay:     cfg.MinDelay,
		maxDelay:     maxDelay,
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
		rng:          rand.Int64N,
	}
}

// Delay draws the next jittered delay from [MinDelay, MaxDelay).
func (t *Throttle) Delay() time.Duration {
	span := int64(t.maxDelay - t.minDelay)
	if span <= 0 {
		return t.minDelay
	}
	return t.minDelay + time.Duration(t.rng(span))
}

// Wait blocks for the jittered delay and then for a token of the URL's
// domain bucket, returning early if ctx is done.
func (t *Throttle) Wait(ctx context.Context, rawURL string) error {
	domain := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		domain = u.Hostname()
	}

	start := time.Now()
	if err := crawler.Pause(ctx, t.Delay()); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	if err := t.limiter(domain).Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveThrottleDelay(domain, waited)
	}
	return nil
}

func (t *Throttle) limiter(domain string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	limiter, exists := t.limiters[domain]
	if !exists {
		limiter = rate.NewLimiter(t.defaultRate, t.defaultBurst)
		t.limiters[domain] = limiter
	}
	return limiter
}
