package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/leave-policy-bot/internal/bootstrap"
	"github.com/kirillkom/leave-policy-bot/internal/config"
	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/observability/logging"
	"github.com/kirillkom/leave-policy-bot/internal/observability/metrics"
)

const serviceName = "leavebot-worker"

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("dotenv_not_loaded", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, RequireQueue: true})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSIngestSubject)
	err = app.Queue.SubscribeIngestJobs(ctx, func(jobCtx context.Context, job domain.IngestJob) error {
		if !job.EnqueuedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(job.EnqueuedAt))
		}
		workerMetrics.StartJob()
		started := time.Now()
		err := app.Process.Process(jobCtx, job)
		workerMetrics.FinishJob(serviceName, jobStatus(err), time.Since(started))
		var dup *domain.DuplicateContentError
		if errors.As(err, &dup) {
			logger.Info("ingest_job_duplicate",
				"filename", job.Filename,
				"storage_key", job.StorageKey,
				"existing_document_id", dup.ExistingID,
			)
			return nil
		}
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

func jobStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case domain.IsKind(err, domain.ErrDuplicateContent):
		return "duplicate"
	default:
		return "error"
	}
}
