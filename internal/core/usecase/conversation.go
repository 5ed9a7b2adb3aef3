package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

type ConversationConfig struct {
	ContextTurns int
	CountryCode  string
}

// ConversationService answers chat questions with per-requester state and limits.
type ConversationService struct {
	asker    ports.PolicyAsker
	store    ports.ConversationStore
	limiter  ports.RequesterLimiter
	messages ports.MessageLog
	events   ports.EventPublisher
	cfg      ConversationConfig
	now      func() time.Time
}

func NewConversationService(
	asker ports.PolicyAsker,
	store ports.ConversationStore,
	limiter ports.RequesterLimiter,
	messages ports.MessageLog,
	events ports.EventPublisher,
	cfg ConversationConfig,
) *ConversationService {
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 4
	}
	return &ConversationService{
		asker:    asker,
		store:    store,
		limiter:  limiter,
		messages: messages,
		events:   events,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConversationService) Handle(ctx context.Context, inquiry domain.Inquiry) (*domain.Reply, error) {
	text := strings.TrimSpace(inquiry.Text)
	if text == "" {
		return &domain.Reply{Text: MessageGreeting}, nil
	}
	if strings.TrimSpace(inquiry.Requester) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "handle inquiry", errors.New("requester is required"))
	}

	key := domain.ConversationKey(inquiry.Channel, inquiry.Requester)
	if s.limiter != nil {
		if ok, retryAfter := s.limiter.Allow(inquiry.Requester); !ok {
			s.record(ctx, inquiry, domain.RoleUser, text, domain.MessageLimited, nil)
			return nil, &domain.RateLimitError{RetryAfter: retryAfter}
		}
	}

	var history []domain.Turn
	if s.store != nil {
		history = s.store.Load(key).Recent(s.cfg.ContextTurns)
	}

	countryCode := inquiry.CountryCode
	if countryCode == "" {
		countryCode = s.cfg.CountryCode
	}
	asked := s.now()
	result, err := s.asker.Ask(ctx, domain.AskRequest{
		Question:    text,
		CountryCode: countryCode,
		History:     history,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	if s.store != nil {
		s.store.Append(key,
			domain.Turn{Role: domain.RoleUser, Content: text, At: asked},
			domain.Turn{Role: domain.RoleAssistant, Content: result.Text, At: s.now()},
		)
	}

	status := domain.MessageOK
	if result.Degraded {
		status = domain.MessageDegraded
	}
	s.record(ctx, inquiry, domain.RoleUser, text, status, nil)
	s.record(ctx, inquiry, domain.RoleAssistant, result.Text, status, result)

	return &domain.Reply{
		Text:          result.Text,
		Sources:       result.Sources,
		ContextSource: result.ContextSource,
		Degraded:      result.Degraded,
		Model:         result.Model,
		Usage:         result.Usage,
	}, nil
}

func (s *ConversationService) record(
	ctx context.Context,
	inquiry domain.Inquiry,
	role domain.Role,
	content string,
	status domain.MessageStatus,
	result *domain.AskResult,
) {
	msg := domain.MessageRecord{
		ID:        uuid.NewString(),
		Channel:   inquiry.Channel,
		Requester: inquiry.Requester,
		Role:      role,
		Content:   content,
		Status:    status,
		CreatedAt: s.now(),
	}
	if result != nil {
		msg.Model = result.Model
		msg.PromptTokens = result.Usage.PromptTokens
		msg.CompletionTokens = result.Usage.CompletionTokens
		msg.LatencyMS = result.Latency.Milliseconds()
	}

	if s.messages != nil {
		if err := s.messages.AppendMessage(ctx, msg); err != nil {
			slog.Warn("message_log_failed", "channel", msg.Channel, "role", msg.Role, "error", err)
		}
	}
	if s.events != nil {
		s.events.Publish(domain.Event{Type: domain.EventMessage, At: msg.CreatedAt, Message: &msg})
	}
}

// RateLimitMessage is the user-facing text for a rejected inquiry.
func RateLimitMessage(retryAfter time.Duration) string {
	wait := retryAfter.Round(time.Second)
	if wait < time.Second {
		wait = time.Second
	}
	return fmt.Sprintf("You're asking questions a little too quickly. Please try again in %s.", wait)
}
