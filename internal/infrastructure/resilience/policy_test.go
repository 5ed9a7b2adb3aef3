package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDefaultConfigOutlastsPerMinuteThrottling(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RetryInitialBackoff < time.Second {
		t.Fatalf("initial backoff %s is too short for upstream rate limits", cfg.RetryInitialBackoff)
	}

	// Total wait across all retries of a 3-attempt policy: 1s + 2s.
	var total time.Duration
	backoff := cfg.RetryInitialBackoff
	for attempt := 1; attempt < cfg.RetryMaxAttempts; attempt++ {
		total += cfg.retryDelay(backoff, errors.New("x"))
		backoff = min(time.Duration(float64(backoff)*cfg.RetryMultiplier), cfg.RetryMaxBackoff)
	}
	if total != 3*time.Second {
		t.Fatalf("unexpected total retry wait %s", total)
	}
}

func TestRetryDelayHonoursRetryAfter(t *testing.T) {
	cfg := DefaultConfig()
	cases := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"no hint", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, time.Second},
		{"longer hint", &HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 12 * time.Second}, 12 * time.Second},
		{"shorter hint", &HTTPStatusError{StatusCode: http.StatusServiceUnavailable, RetryAfter: 100 * time.Millisecond}, time.Second},
		{"hint capped", &HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 10 * time.Minute}, cfg.RetryAfterMax},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cfg.retryDelay(time.Second, tc.err); got != tc.want {
				t.Fatalf("retryDelay() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	cases := map[string]time.Duration{
		"":                              0,
		"7":                             7 * time.Second,
		"-3":                            0,
		"soon":                          0,
		"Fri, 15 Aug 2025 09:00:20 GMT": 20 * time.Second,
		"Fri, 15 Aug 2025 08:59:00 GMT": 0,
	}
	for value, want := range cases {
		if got := ParseRetryAfter(value, now); got != want {
			t.Fatalf("ParseRetryAfter(%q) = %s, want %s", value, got, want)
		}
	}
}

func TestExecuteWaitsForRetryAfter(t *testing.T) {
	exec := NewExecutor(Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryAfterMax:       time.Second,
		BreakerEnabled:      false,
	})

	attempts := 0
	started := time.Now()
	err := exec.Execute(context.Background(), "chat", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return &HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 50 * time.Millisecond}
		}
		return nil
	}, ClassifyUpstream)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Fatalf("retried after %s, before the upstream hint", elapsed)
	}
}
