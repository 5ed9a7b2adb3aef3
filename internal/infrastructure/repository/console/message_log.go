package console

import (
	"context"
	"log/slog"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

// MessageLog writes message rows to the structured log instead of a database.
type MessageLog struct {
	logger *slog.Logger
}

func NewMessageLog(logger *slog.Logger) *MessageLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &MessageLog{logger: logger}
}

func (l *MessageLog) AppendMessage(ctx context.Context, msg domain.MessageRecord) error {
	l.logger.InfoContext(ctx, "message",
		"id", msg.ID,
		"channel", msg.Channel,
		"requester", msg.Requester,
		"role", msg.Role,
		"status", msg.Status,
		"model", msg.Model,
		"prompt_tokens", msg.PromptTokens,
		"completion_tokens", msg.CompletionTokens,
		"latency_ms", msg.LatencyMS,
		"content", msg.Content,
	)
	return nil
}
