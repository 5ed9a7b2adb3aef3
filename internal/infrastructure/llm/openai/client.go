package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/resilience"
)

type Config struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
}

// model is the part of the langchaingo OpenAI client used here.
type model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Client serves both chat completions and embeddings from one OpenAI account.
type Client struct {
	llm      model
	cfg      Config
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = "text-embedding-3-small"
	}

	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.APIKey),
		lcopenai.WithModel(cfg.ChatModel),
		lcopenai.WithEmbeddingModel(cfg.EmbedModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return newWithModel(llm, cfg, executor), nil
}

func newWithModel(llm model, cfg Config, executor *resilience.Executor) *Client {
	return &Client{llm: llm, cfg: cfg, executor: executor}
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := resilience.Call(ctx, c.executor, "openai.embed", func(ctx context.Context) ([][]float32, error) {
		return c.llm.CreateEmbedding(ctx, texts)
	}, classify)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", asStatusError("embed", err))
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai embed returned %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) Answer(ctx context.Context, input domain.AnswerInput) (*domain.Completion, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, prompt.System),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt.User(input)),
	}
	opts := []llms.CallOption{llms.WithTemperature(c.cfg.Temperature)}
	if c.cfg.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.cfg.MaxTokens))
	}

	resp, err := resilience.Call(ctx, c.executor, "openai.chat", func(ctx context.Context) (*llms.ContentResponse, error) {
		return c.llm.GenerateContent(ctx, messages, opts...)
	}, classify)
	if err != nil {
		return nil, resilience.WrapTemporary("openai chat", asStatusError("chat", err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "openai chat", errors.New("empty completion"))
	}

	choice := resp.Choices[0]
	return &domain.Completion{
		Text:  strings.TrimSpace(choice.Content),
		Model: c.cfg.ChatModel,
		Usage: domain.TokenUsage{
			PromptTokens:     intInfo(choice.GenerationInfo, "PromptTokens"),
			CompletionTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		},
	}, nil
}

var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

// asStatusError recovers the HTTP status the client only reports in its message.
func asStatusError(operation string, err error) error {
	var statusErr *resilience.HTTPStatusError
	if err == nil || errors.As(err, &statusErr) {
		return err
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, _ := strconv.Atoi(m[1])
	return fmt.Errorf("%w: %w", &resilience.HTTPStatusError{
		Upstream:   "openai",
		Operation:  operation,
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
	}, err)
}

func classify(err error) resilience.ErrorClassification {
	return resilience.ClassifyUpstream(asStatusError("", err))
}

func intInfo(info map[string]any, key string) int {
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
