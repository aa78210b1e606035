package antrian

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ambiyansyah-risyal/antrian/internal/backoff"
)

// RetryPolicy classifies call outcomes and decides on retries.
type RetryPolicy struct {
	maxRetries        int
	maxBackoff        time.Duration
	calculator        *backoff.Calculator
	respectRetryAfter bool
	now               func() time.Time
}

// NewRetryPolicy creates a policy allowing maxRetries retries with delays of
// 2^(n-1)*base, capped at max. A nil strategy means plain exponential.
func NewRetryPolicy(maxRetries int, base, max time.Duration, strategy backoff.Strategy) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryPolicy{
		maxRetries: maxRetries,
		maxBackoff: max,
		calculator: backoff.NewCalculator(strategy, base, max),
		now:        time.Now,
	}
}

// Classify maps a transport result to an ErrorKind. A zero kind means
// success.
func (p *RetryPolicy) Classify(resp *Response, err error) ErrorKind {
	if err != nil || resp == nil {
		return KindNetwork
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case resp.StatusCode >= 500 && resp.StatusCode <= 599:
		return KindServer
	case resp.StatusCode >= 400:
		return KindClient
	default:
		return 0
	}
}

// Retryable reports whether a failure of kind may be retried after retries
// retries have already been made.
func (p *RetryPolicy) Retryable(kind ErrorKind, retries int) bool {
	return kind.Retryable() && retries < p.maxRetries
}

// NextDelay returns the wait before the given retry (1-based): 1x, 2x, 4x the
// base backoff and so on, capped at the maximum.
func (p *RetryPolicy) NextDelay(retry int) time.Duration {
	return p.calculator.Delay(retry)
}

// Delay is NextDelay, replaced by a larger Retry-After from a 429 or 503
// response when the policy honours that header.
func (p *RetryPolicy) Delay(retry int, resp *Response) time.Duration {
	delay := p.NextDelay(retry)
	if !p.respectRetryAfter || resp == nil {
		return delay
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return delay
	}
	if after := parseRetryAfter(resp.Header.Get("Retry-After"), p.now()); after > delay {
		delay = after
		if p.maxBackoff > 0 && delay > p.maxBackoff {
			delay = p.maxBackoff
		}
	}
	return delay
}

// MaxRetries returns the retry limit.
func (p *RetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds format and HTTP-date format.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		if delay := t.Sub(now); delay > 0 {
			return delay
		}
	}

	return 0
}
