package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lpb"

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	ragRequestsTotal   *prometheus.CounterVec
	ragDegradedTotal   *prometheus.CounterVec
	ragRetrievedChunks *prometheus.HistogramVec
	ragDuration        *prometheus.HistogramVec
	llmTokensTotal     *prometheus.CounterVec
	rateLimitedTotal   *prometheus.CounterVec
	overloadedTotal    *prometheus.CounterVec
	admissionWait      prometheus.Histogram
	upstreamRetries    *prometheus.CounterVec
	eventSubscribers   prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: serviceLabel,
		},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Answered questions by context source (retrieval, fallback, none).",
		},
		[]string{"service", "endpoint", "context_source"},
	)
	ragDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "degraded_total",
			Help:      "Questions answered with the generic failure reply.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per answered question.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Question answering duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the model, by direction.",
		},
		[]string{"service", "endpoint", "direction", "model"},
	)
	rateLimitedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limit, by scope (global, requester).",
		},
		[]string{"service", "scope"},
	)
	overloadedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "traffic",
			Name:      "overloaded_total",
			Help:      "Requests rejected because no capacity freed up in time.",
		},
		[]string{"service", "stage"},
	)
	admissionWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "llm",
			Name:        "admission_wait_seconds",
			Help:        "Time spent queued for an LLM slot.",
			Buckets:     []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			ConstLabels: serviceLabel,
		},
	)
	upstreamRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Retried upstream calls by operation.",
		},
		[]string{"service", "operation"},
	)
	eventSubscribers := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "events",
			Name:        "subscribers",
			Help:        "Connected live event stream clients.",
			ConstLabels: serviceLabel,
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		ragRequestsTotal,
		ragDegradedTotal,
		ragRetrievedChunks,
		ragDuration,
		llmTokensTotal,
		rateLimitedTotal,
		overloadedTotal,
		admissionWait,
		upstreamRetries,
		eventSubscribers,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		ragRequestsTotal:   ragRequestsTotal,
		ragDegradedTotal:   ragDegradedTotal,
		ragRetrievedChunks: ragRetrievedChunks,
		ragDuration:        ragDuration,
		llmTokensTotal:     llmTokensTotal,
		rateLimitedTotal:   rateLimitedTotal,
		overloadedTotal:    overloadedTotal,
		admissionWait:      admissionWait,
		upstreamRetries:    upstreamRetries,
		eventSubscribers:   eventSubscribers,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry for collectors owned by other packages.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/admin/docs/") && path != "/admin/docs/upload":
		return "/admin/docs/{id}"
	default:
		return path
	}
}

// RecordAnswer observes one answered question. endpoint names the surface (ask, slack, mcp).
func (m *HTTPServerMetrics) RecordAnswer(service, endpoint, contextSource string, sourceCount int, degraded bool, duration time.Duration) {
	if contextSource == "" {
		contextSource = "none"
	}
	m.ragRequestsTotal.WithLabelValues(service, endpoint, contextSource).Inc()
	m.ragRetrievedChunks.WithLabelValues(service, endpoint).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if degraded {
		m.ragDegradedTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, endpoint, model string, promptTokens, completionTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, endpoint, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, endpoint, "out", model).Add(float64(completionTokens))
	}
}

func (m *HTTPServerMetrics) RecordRateLimited(service, scope string) {
	m.rateLimitedTotal.WithLabelValues(service, scope).Inc()
}

func (m *HTTPServerMetrics) RecordOverloaded(service, stage string) {
	m.overloadedTotal.WithLabelValues(service, stage).Inc()
}

func (m *HTTPServerMetrics) ObserveAdmissionWait(wait time.Duration) {
	m.admissionWait.Observe(wait.Seconds())
}

func (m *HTTPServerMetrics) RecordRetry(service, operation string) {
	m.upstreamRetries.WithLabelValues(service, operation).Inc()
}

func (m *HTTPServerMetrics) EventSubscriberConnected()    { m.eventSubscribers.Inc() }
func (m *HTTPServerMetrics) EventSubscriberDisconnected() { m.eventSubscribers.Dec() }

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
