package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/resilience"
)

const (
	workerGroup       = "workers"
	defaultJobTimeout = 5 * time.Minute
)

type publisher interface {
	Publish(subject string, data []byte) error
}

// Queue carries ingest jobs from upload surfaces to the worker pool.
type Queue struct {
	conn       *nats.Conn
	pub        publisher
	subject    string
	executor   *resilience.Executor
	jobTimeout time.Duration
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	JobTimeout           time.Duration
	ResilienceExecutor   *resilience.Executor
}

// Connect dials NATS with reconnect settings suited to long-running services.
func Connect(url, name string, options Options) (*nats.Conn, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return conn, nil
}

func NewQueue(conn *nats.Conn, subject string, options Options) *Queue {
	q := newQueue(conn, subject, options)
	q.conn = conn
	return q
}

func newQueue(pub publisher, subject string, options Options) *Queue {
	timeout := options.JobTimeout
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}
	return &Queue{
		pub:        pub,
		subject:    subject,
		executor:   options.ResilienceExecutor,
		jobTimeout: timeout,
	}
}

func (q *Queue) PublishIngestJob(ctx context.Context, job domain.IngestJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal ingest job: %w", err)
	}

	err = q.executor.Execute(ctx, "nats.publish", func(context.Context) error {
		if err := q.pub.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeIngestJobs consumes jobs in the shared worker queue group until ctx
// is done, then drains in-flight messages.
func (q *Queue) SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error {
	if q.conn == nil {
		return fmt.Errorf("nats subscribe: no connection")
	}
	sub, err := q.conn.QueueSubscribe(q.subject, workerGroup, func(msg *nats.Msg) {
		q.handle(ctx, msg.Data, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, data []byte, handler func(context.Context, domain.IngestJob) error) {
	if ctx.Err() != nil {
		return
	}

	var job domain.IngestJob
	if err := json.Unmarshal(data, &job); err != nil {
		slog.Error("ingest_job_malformed", "error", err, "bytes", len(data))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, q.jobTimeout)
	defer cancel()
	if err := handler(jobCtx, job); err != nil {
		slog.Error("ingest_job_failed", "storage_key", job.StorageKey, "filename", job.Filename, "error", err)
	}
}
