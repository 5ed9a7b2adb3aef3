package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/llm/prompt"
	"github.com/kirillkom/leave-policy-bot/internal/infrastructure/resilience"
)

type Config struct {
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	baseURL    string
	cfg        Config
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.cfg.EmbedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Answerer asks the chat model with the leave-policy system prompt.
type Answerer struct {
	client *Client
}

func NewAnswerer(client *Client) *Answerer {
	return &Answerer{client: client}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *Answerer) Answer(ctx context.Context, input domain.AnswerInput) (*domain.Completion, error) {
	cfg := a.client.cfg
	request := map[string]any{
		"model":  cfg.ChatModel,
		"stream": false,
		"messages": []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User(input)},
		},
		"options": map[string]any{
			"temperature": cfg.Temperature,
			"num_predict": cfg.MaxTokens,
		},
	}

	var response struct {
		Model   string      `json:"model"`
		Message chatMessage `json:"message"`
		// Ollama reports token counts as prompt_eval_count and eval_count.
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	if err := a.client.call(ctx, "/api/chat", request, &response, "chat"); err != nil {
		return nil, err
	}

	model := response.Model
	if model == "" {
		model = cfg.ChatModel
	}
	return &domain.Completion{
		Text:  strings.TrimSpace(response.Message.Content),
		Model: model,
		Usage: domain.TokenUsage{
			PromptTokens:     response.PromptEvalCount,
			CompletionTokens: response.EvalCount,
		},
	}, nil
}

func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	err := c.executor.Execute(ctx, "ollama."+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, resilience.ClassifyUpstream)
	return resilience.WrapTemporary("ollama "+operation, err)
}
