package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
	"github.com/kirillkom/leave-policy-bot/internal/observability/metrics"
)

const (
	adminTokenHeader = "X-Admin-Token"
	apiChannel       = "api"
)

type Config struct {
	ServiceName        string
	AdminToken         string
	DefaultCountryCode string
	RateLimitRPS       float64
	RateLimitBurst     int
	MaxInFlight        int
	BackpressureWait   time.Duration
	UploadMaxBytes     int64
	EventBuffer        int
}

// Dependencies are the inbound ports served over HTTP. Nil ports disable
// their routes with 503.
type Dependencies struct {
	Conversations ports.ConversationHandler
	Searcher      ports.Searcher
	Uploader      ports.DocumentUploader
	Catalog       ports.DocumentCatalog
	Messages      ports.MessageBrowser
	Events        ports.EventSubscriber
	Corpus        ports.PolicyCorpus
	Metrics       *metrics.HTTPServerMetrics
}

type Router struct {
	cfg     Config
	deps    Dependencies
	limiter *rate.Limiter
}

func NewRouter(cfg Config, deps Dependencies) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "leavebot-api"
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 50 << 20
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	rt := &Router{cfg: cfg, deps: deps}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		rt.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /{$}", rt.status)
	mux.Handle("POST /ask", rt.guarded(http.HandlerFunc(rt.ask)))
	mux.Handle("POST /v1/search", rt.guarded(http.HandlerFunc(rt.search)))
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.Handle("GET /admin/docs", rt.admin(rt.listDocuments))
	mux.Handle("POST /admin/docs/upload", rt.admin(rt.uploadDocument))
	mux.Handle("DELETE /admin/docs/{id}", rt.admin(rt.deleteDocument))
	mux.Handle("GET /admin/messages", rt.admin(rt.listMessages))
	mux.Handle("GET /admin/events", rt.admin(rt.streamEvents))

	var handler http.Handler = mux
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// guarded applies the global token bucket and the in-flight gate.
func (rt *Router) guarded(next http.Handler) http.Handler {
	next = backpressureMiddleware(next, rt.cfg.MaxInFlight, rt.cfg.BackpressureWait, func() {
		if rt.deps.Metrics != nil {
			rt.deps.Metrics.RecordOverloaded(rt.cfg.ServiceName, "http")
		}
	})
	return rateLimitMiddleware(next, rt.limiter, func() {
		if rt.deps.Metrics != nil {
			rt.deps.Metrics.RecordRateLimited(rt.cfg.ServiceName, "global")
		}
	})
}

func (rt *Router) admin(fn http.HandlerFunc) http.Handler {
	return adminAuthMiddleware(fn, rt.cfg.AdminToken)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) status(w http.ResponseWriter, _ *http.Request) {
	corpusLength := 0
	if rt.deps.Corpus != nil {
		corpusLength = len(rt.deps.Corpus.Text())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"ready":         rt.deps.Searcher != nil || corpusLength > 0,
		"corpus_length": corpusLength,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return decoder.Decode(out) == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
