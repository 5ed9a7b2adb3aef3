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

	httpadapter "github.com/kirillkom/leave-policy-bot/internal/adapters/http"
	"github.com/kirillkom/leave-policy-bot/internal/bootstrap"
	"github.com/kirillkom/leave-policy-bot/internal/config"
	"github.com/kirillkom/leave-policy-bot/internal/observability/logging"
	"github.com/kirillkom/leave-policy-bot/internal/observability/metrics"
)

const serviceName = "leavebot-api"

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

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Metrics: httpMetrics})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		logger.Error("app_start_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(httpadapter.Config{
		ServiceName:        serviceName,
		AdminToken:         cfg.AdminToken,
		DefaultCountryCode: cfg.DefaultCountryCode,
		RateLimitRPS:       cfg.APIRateLimitRPS,
		RateLimitBurst:     cfg.APIRateLimitBurst,
		MaxInFlight:        cfg.APIMaxInFlight,
		BackpressureWait:   time.Duration(cfg.BackpressureWaitMS) * time.Millisecond,
		UploadMaxBytes:     cfg.UploadMaxBytes,
		EventBuffer:        cfg.EventStreamBufferMessages,
	}, httpadapter.Dependencies{
		Conversations: app.Conversations,
		Searcher:      app.Search,
		Uploader:      app.Upload,
		Catalog:       app.Catalog,
		Messages:      app.History,
		Events:        app.Hub,
		Corpus:        app.Corpus,
		Metrics:       httpMetrics,
	}).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
}
