package resilience

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config tunes retries and circuit breaking for the LLM and queue upstreams.
// Hosted LLM APIs throttle per minute, so backoff is on the order of seconds.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64
	// RetryAfterMax caps a server-provided Retry-After hint.
	RetryAfterMax time.Duration

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Second,
		RetryMaxBackoff:     8 * time.Second,
		RetryMultiplier:     2.0,
		RetryAfterMax:       30 * time.Second,

		BreakerEnabled:          true,
		BreakerMinRequests:      5,
		BreakerFailureRatio:     0.6,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 1,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.RetryAfterMax <= 0 {
		out.RetryAfterMax = def.RetryAfterMax
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}
	return out
}

// retryDelay is the wait before the next attempt: the exponential backoff,
// stretched to the upstream's Retry-After when it asks for longer.
func (c Config) retryDelay(backoff time.Duration, err error) time.Duration {
	wait := min(backoff, c.RetryMaxBackoff)
	if hint := retryAfterHint(err); hint > wait {
		wait = min(hint, c.RetryAfterMax)
	}
	return wait
}

// ParseRetryAfter reads a Retry-After header in either delta-seconds or
// HTTP-date form. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}
