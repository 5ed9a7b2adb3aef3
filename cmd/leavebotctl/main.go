package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/leave-policy-bot/internal/adapters/cli"
	mcpadapter "github.com/kirillkom/leave-policy-bot/internal/adapters/mcp"
	"github.com/kirillkom/leave-policy-bot/internal/bootstrap"
	"github.com/kirillkom/leave-policy-bot/internal/config"
	"github.com/kirillkom/leave-policy-bot/internal/observability/logging"
)

const serviceName = "leavebotctl"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	// stdout carries command output and the MCP stream.
	slog.SetDefault(logging.New(os.Stderr, serviceName, cfg.LogLevel, "text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, opener(cfg)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func opener(cfg config.Config) cli.Opener {
	return func(ctx context.Context) (*cli.Services, func(), error) {
		cfg.WatchDocs = false
		app, err := bootstrap.New(ctx, cfg, bootstrap.Options{Service: serviceName})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: %w", err)
		}
		if err := app.Start(ctx); err != nil {
			app.Close()
			return nil, nil, err
		}

		tools := mcpadapter.NewServer(app.Search, app.Ask, cfg.DefaultCountryCode)
		return &cli.Services{
			Uploader:       app.Upload,
			Catalog:        app.Catalog,
			Searcher:       app.Search,
			Asker:          app.Ask,
			DefaultCountry: cfg.DefaultCountryCode,
			ServeMCP:       tools.Serve,
		}, app.Close, nil
	}
}
