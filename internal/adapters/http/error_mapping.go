package httpadapter

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrDuplicateContent):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrOverloaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its mapped status. Server-side failures never
// expose the underlying message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	body := map[string]any{"error": err.Error()}

	var duplicate *domain.DuplicateContentError
	var limited *domain.RateLimitError
	switch {
	case errors.As(err, &duplicate):
		body["error"] = "a document with the same content already exists"
		body["existing_document"] = map[string]string{
			"id":   duplicate.ExistingID,
			"name": duplicate.ExistingName,
		}
	case errors.As(err, &limited):
		setRetryAfter(w, limited.RetryAfter)
	case status == http.StatusServiceUnavailable:
		body["error"] = "service temporarily unavailable, please retry shortly"
	case status >= http.StatusInternalServerError:
		body["error"] = "internal error"
	}

	if status >= http.StatusInternalServerError {
		slog.Error("http_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	seconds := int(math.Ceil(wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
