package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/kirillkom/leave-policy-bot/internal/config"
	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
	"github.com/kirillkom/leave-policy-bot/internal/core/usecase"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/chunking"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/corpus"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/events"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/extractor"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/llm/openai"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/memory"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/repository/console"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/resilience"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/rules"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/storage/s3store"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/traffic"
	"github.com/kirillkom/leave-policy-bot/internal/observability/metrics"
)

// Options tune wiring per process.
type Options struct {
	// Service names the process in logs, metrics and the NATS connection.
	Service string
	// RequireQueue fails startup when NATS is unreachable. Without it the
	// process runs with synchronous uploads and local-only events.
	RequireQueue bool
	Metrics      *metrics.HTTPServerMetrics
}

type App struct {
	Config config.Config

	Hub    *events.Hub
	Corpus *corpus.Corpus
	Gate   *traffic.Gate
	Queue  *nats.Queue

	Upload        *usecase.UploadUseCase
	Process       *usecase.ProcessIngestUseCase
	Catalog       *usecase.CatalogUseCase
	Search        *usecase.SearchUseCase
	Ask           *usecase.AskUseCase
	Conversations *usecase.ConversationService
	History       *usecase.HistoryUseCase

	relay   *nats.EventRelay
	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })

	documents := postgres.NewDocumentRepository(db)
	if err := documents.EnsureSchema(ctx, cfg.EmbeddingDim); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if opts.Metrics != nil {
		executor.OnRetry(func(operation string) {
			opts.Metrics.RecordRetry(opts.Service, operation)
		})
	}

	embedder, answerer, embedModel, err := newLLM(cfg, executor)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	app.Gate = traffic.NewGate(cfg.LLMMaxConcurrent)
	if opts.Metrics != nil {
		app.Gate.OnAdmit(opts.Metrics.ObserveAdmissionWait)
		app.Gate.OnReject(func() { opts.Metrics.RecordOverloaded(opts.Service, "llm") })
	}
	gated := traffic.NewGatedAnswerer(answerer, app.Gate, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	queryRules, err := loadRules(cfg.RerankRulesPath)
	if err != nil {
		return nil, err
	}

	app.Hub = events.NewHub("")
	if err := app.connectNATS(cfg, opts, executor); err != nil {
		return nil, err
	}

	extract := extractor.Default()
	app.Corpus = corpus.New(cfg.DocsDir, extract)

	indexer := usecase.NewIndexUseCase(documents, chunker, embedder, app.Hub, usecase.IndexConfig{
		EmbeddingModel:   embedModel,
		EmbeddingVersion: cfg.EmbeddingVersion,
		Dimension:        cfg.EmbeddingDim,
		BatchSize:        cfg.EmbedBatchSize,
		DefaultLanguage:  cfg.DefaultLanguage,
	})

	var queue ports.IngestQueue
	if app.Queue != nil {
		queue = app.Queue
	}
	app.Upload = usecase.NewUploadUseCase(indexer, extract, storage, queue, usecase.UploadConfig{
		MaxBytes:        cfg.UploadMaxBytes,
		DefaultCountry:  cfg.DefaultCountryCode,
		DefaultLanguage: cfg.DefaultLanguage,
	})
	app.Process = usecase.NewProcessIngestUseCase(indexer, extract, storage)
	app.Catalog = usecase.NewCatalogUseCase(documents, storage, app.Hub)

	app.Search = usecase.NewSearchUseCase(embedder, documents, usecase.NewQueryClassifier(queryRules), cfg.RAGTopK)
	app.Ask = usecase.NewAskUseCase(app.Search, app.Corpus, gated, usecase.AskConfig{
		TopK:   cfg.RAGTopK,
		UseRAG: cfg.UseRAG,
	})

	conversations, err := memory.NewStore(cfg.ConversationCacheSize, cfg.ConversationMaxMessages)
	if err != nil {
		return nil, fmt.Errorf("init conversation store: %w", err)
	}
	limiter, err := traffic.NewSlidingWindow(
		cfg.UserRateLimit,
		time.Duration(cfg.UserRateWindowSeconds)*time.Second,
		cfg.ConversationCacheSize,
	)
	if err != nil {
		return nil, fmt.Errorf("init requester limiter: %w", err)
	}

	app.Conversations = usecase.NewConversationService(
		app.Ask,
		conversations,
		limiter,
		messageLog(cfg, db, opts.Service),
		app.Hub,
		usecase.ConversationConfig{
			ContextTurns: cfg.ConversationContextMsgs,
			CountryCode:  cfg.DefaultCountryCode,
		},
	)
	app.History = usecase.NewHistoryUseCase(postgres.NewMessageRepository(db))

	ok = true
	return app, nil
}

// Start loads the fallback corpus and launches background loops bound to ctx.
func (a *App) Start(ctx context.Context) error {
	if err := a.Corpus.Load(ctx); err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	if a.Config.WatchDocs {
		go func() {
			if err := a.Corpus.Watch(ctx); err != nil {
				slog.Warn("corpus_watch_stopped", "dir", a.Config.DocsDir, "error", err)
			}
		}()
	}
	if a.relay != nil {
		go func() {
			if err := a.relay.Run(ctx, a.Hub.Deliver); err != nil {
				slog.Warn("event_relay_stopped", "error", err)
			}
		}()
	}
	return nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) connectNATS(cfg config.Config, opts Options, executor *resilience.Executor) error {
	natsOpts := nats.Options{
		JobTimeout:         time.Duration(cfg.IngestJobTimeoutMinutes) * time.Minute,
		ResilienceExecutor: executor,
	}
	if !opts.RequireQueue {
		retry := false
		natsOpts.RetryOnFailedConnect = &retry
	}

	conn, err := nats.Connect(cfg.NATSURL, "leavebot-"+opts.Service, natsOpts)
	if err != nil {
		if opts.RequireQueue {
			return fmt.Errorf("init message queue: %w", err)
		}
		slog.Warn("nats_unavailable", "url", cfg.NATSURL, "error", err)
		return nil
	}
	a.closers = append(a.closers, func() { _ = drain(conn) })

	a.Queue = nats.NewQueue(conn, cfg.NATSIngestSubject, natsOpts)
	a.relay = nats.NewEventRelay(conn, cfg.NATSEventsSubject)
	a.Hub.OnPublish(a.relay.Forward)
	return nil
}

func drain(conn *natsgo.Conn) error {
	if err := conn.Drain(); err != nil && !errors.Is(err, natsgo.ErrConnectionClosed) {
		conn.Close()
		return err
	}
	return nil
}

func newStorage(ctx context.Context, cfg config.Config) (ports.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case "s3":
		return s3store.New(ctx, s3store.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
	case "", "local":
		return localfs.New(cfg.StoragePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newLLM(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.Answerer, string, error) {
	switch cfg.LLMProvider {
	case "ollama":
		client := ollama.New(ollama.Config{
			BaseURL:     cfg.OllamaURL,
			ChatModel:   cfg.OllamaGenModel,
			EmbedModel:  cfg.OllamaEmbedModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
			Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		}, executor)
		return ollama.NewEmbedder(client), ollama.NewAnswerer(client), cfg.OllamaEmbedModel, nil
	case "", "openai":
		client, err := openai.New(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			ChatModel:   cfg.OpenAIChatModel,
			EmbedModel:  cfg.OpenAIEmbedModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		}, executor)
		if err != nil {
			return nil, nil, "", err
		}
		return client, client, cfg.OpenAIEmbedModel, nil
	default:
		return nil, nil, "", fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RetryMaxAttempts = cfg.RetryMaxAttempts
	out.RetryInitialBackoff = time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond
	out.RetryMaxBackoff = time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond
	out.BreakerEnabled = cfg.BreakerEnabled
	out.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenTimeoutSec) * time.Second
	return out
}

func loadRules(path string) ([]domain.QueryRule, error) {
	if path == "" {
		return usecase.DefaultQueryRules(), nil
	}
	loaded, err := rules.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rerank rules: %w", err)
	}
	slog.Info("rerank_rules_loaded", "path", path, "rules", len(loaded))
	return loaded, nil
}

func messageLog(cfg config.Config, db *sql.DB, service string) ports.MessageLog {
	if cfg.LogToConsole {
		return console.NewMessageLog(slog.Default().With("component", "message_log", "surface", service))
	}
	return postgres.NewMessageRepository(db)
}
