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
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	slackadapter "github.com/kirillkom/leave-policy-bot/internal/adapters/slack"
	"github.com/kirillkom/leave-policy-bot/internal/bootstrap"
	"github.com/kirillkom/leave-policy-bot/internal/config"
	"github.com/kirillkom/leave-policy-bot/internal/observability/logging"
	"github.com/kirillkom/leave-policy-bot/internal/observability/metrics"
)

const serviceName = "leavebot-slack"

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, serviceName, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Debug("dotenv_not_loaded", "error", envErr)
	}

	if cfg.SlackBotToken == "" || cfg.SlackAppToken == "" {
		logger.Error("slack_tokens_missing", "required", "SLACK_BOT_TOKEN,SLACK_APP_TOKEN")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	botMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName, Metrics: botMetrics})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		logger.Error("app_start_failed", "error", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.SlackbotMetricsPort,
		Handler:           botMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("slack_metrics_listening", "port", cfg.SlackbotMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("slack_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	client := socketmode.New(api)

	bot := slackadapter.NewBot(app.Conversations, api, nil, botMetrics, slackadapter.Config{
		ServiceName:  serviceName,
		SlashCommand: cfg.SlackSlashCommand,
		CountryCode:  cfg.DefaultCountryCode,
		AnswerWait:   time.Duration(cfg.LLMTimeoutSeconds)*time.Second + 30*time.Second,
	})

	logger.Info("slack_bot_starting", "slash_command", cfg.SlackSlashCommand)
	if err := bot.Run(ctx, client); err != nil {
		logger.Error("slack_bot_failed", "error", err)
		os.Exit(1)
	}
}
