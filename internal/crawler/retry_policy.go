package crawler

import (
	"math"
	"net/http"
	"time"
)

// DefaultRetryStatuses are the response codes worth another attempt.
var DefaultRetryStatuses = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// RetryConfig tunes ExponentialRetryPolicy.
type RetryConfig struct {
	MaxRetries    int
	BackoffFactor time.Duration
	MaxBackoff    time.Duration
	RetryStatuses []int
}

// ExponentialRetryPolicy retries transport errors and selected statuses with
// a doubling delay: factor * 2^(retry-1), capped at MaxBackoff.
type ExponentialRetryPolicy struct {
	maxRetries int
	factor     time.Duration
	maxDelay   time.Duration
	statuses   map[int]struct{}
}

// NewExponentialRetryPolicy builds a policy with sane defaults.
func NewExponentialRetryPolicy(cfg RetryConfig) *ExponentialRetryPolicy {
	p := &ExponentialRetryPolicy{
		maxRetries: cfg.MaxRetries,
		factor:     cfg.BackoffFactor,
		maxDelay:   cfg.MaxBackoff,
		statuses:   make(map[int]struct{}),
	}
	if p.maxRetries < 0 {
		p.maxRetries = 0
	}
	if p.maxDelay <= 0 {
		p.maxDelay = 120 * time.Second
	}
	statuses := cfg.RetryStatuses
	if len(statuses) == 0 {
		statuses = DefaultRetryStatuses
	}
	for _, code := range statuses {
		p.statuses[code] = struct{}{}
	}
	return p
}

// MaxRetries returns how many retries follow the first attempt.
func (p *ExponentialRetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// MaxBackoff returns the delay cap.
func (p *ExponentialRetryPolicy) MaxBackoff() time.Duration {
	return p.maxDelay
}

// ShouldRetry decides whether a transport error after the given retry count
// (0 for the first attempt) deserves another attempt. Every transport error,
// including a per-request client timeout, is transient; callers stop on their
// own context instead.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, retries int) bool {
	return err != nil && retries < p.maxRetries
}

// ShouldRetryStatus reports whether the status is retryable after the given retry count.
func (p *ExponentialRetryPolicy) ShouldRetryStatus(status int, retries int) bool {
	if retries >= p.maxRetries {
		return false
	}
	_, ok := p.statuses[status]
	return ok
}

// Backoff returns the wait before retry number n (1-based).
func (p *ExponentialRetryPolicy) Backoff(n int) time.Duration {
	if n <= 0 || p.factor <= 0 {
		return 0
	}
	delay := float64(p.factor) * math.Pow(2, float64(n-1))
	if delay > float64(p.maxDelay) {
		return p.maxDelay
	}
	return time.Duration(delay)
}
