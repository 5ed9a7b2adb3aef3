package httpadapter

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/usecase"
)

const requesterHeader = "X-Requester-Id"

type askRequest struct {
	Question    string `json:"question"`
	CountryCode string `json:"country_code"`
	Requester   string `json:"requester"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Conversations == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "question answering is not configured"})
		return
	}
	var req askRequest
	if !decodeJSON(w, r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	started := time.Now()
	reply, err := rt.deps.Conversations.Handle(r.Context(), domain.Inquiry{
		Channel:     apiChannel,
		Requester:   firstNonEmpty(req.Requester, r.Header.Get(requesterHeader), clientIP(r)),
		Text:        req.Question,
		CountryCode: strings.ToUpper(firstNonEmpty(req.CountryCode, rt.cfg.DefaultCountryCode)),
	})
	if err != nil {
		var limited *domain.RateLimitError
		if errors.As(err, &limited) {
			if rt.deps.Metrics != nil {
				rt.deps.Metrics.RecordRateLimited(rt.cfg.ServiceName, "requester")
			}
			setRetryAfter(w, limited.RetryAfter)
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":               usecase.RateLimitMessage(limited.RetryAfter),
				"retry_after_seconds": int(limited.RetryAfter.Round(time.Second).Seconds()),
			})
			return
		}
		writeError(w, r, err)
		return
	}

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAnswer(rt.cfg.ServiceName, "ask", string(reply.ContextSource), len(reply.Sources), reply.Degraded, time.Since(started))
		rt.deps.Metrics.RecordTokenUsage(rt.cfg.ServiceName, "ask", reply.Model, reply.Usage.PromptTokens, reply.Usage.CompletionTokens)
	}
	writeJSON(w, http.StatusOK, reply)
}

type searchRequest struct {
	Query       string `json:"query"`
	CountryCode string `json:"country_code"`
	TopK        int    `json:"top_k"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Searcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "search is not configured"})
		return
	}
	var req searchRequest
	if !decodeJSON(w, r, &req) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.TopK < 0 || req.TopK > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "top_k must be between 1 and 100"})
		return
	}

	chunks, err := rt.deps.Searcher.Search(r.Context(), domain.SearchQuery{
		Query:       req.Query,
		CountryCode: strings.ToUpper(firstNonEmpty(req.CountryCode, rt.cfg.DefaultCountryCode)),
		TopK:        req.TopK,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if chunks == nil {
		chunks = []domain.RetrievedChunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": chunks,
		"count":   len(chunks),
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
