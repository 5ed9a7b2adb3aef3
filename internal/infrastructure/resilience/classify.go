package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

// HTTPStatusError is a non-2xx answer from an upstream HTTP API.
type HTTPStatusError struct {
	Upstream   string
	Operation  string
	StatusCode int
	Status     string
	Body       string
	// RetryAfter is the upstream's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s status: %s", e.Upstream, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Upstream, e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ClassifyUpstream retries network failures, open circuits and transient
// HTTP statuses. Caller cancellation is neither retried nor counted.
func ClassifyUpstream(err error) ErrorClassification {
	if err == nil {
		return ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if IsCircuitOpen(err) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if IsRetryableHTTPStatus(statusErr.StatusCode) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{Retryable: false, RecordFailure: false}
	}

	if domain.IsKind(err, domain.ErrTemporary) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return ErrorClassification{Retryable: false, RecordFailure: true}
}

func retryAfterHint(err error) time.Duration {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}

// WrapTemporary marks retryable failures as domain.ErrTemporary so callers
// can degrade instead of failing hard.
func WrapTemporary(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if ClassifyUpstream(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
