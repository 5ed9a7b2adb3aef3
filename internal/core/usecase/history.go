package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 500
)

// HistoryUseCase pages through logged messages with a created_at cursor.
type HistoryUseCase struct {
	history ports.MessageHistory
}

func NewHistoryUseCase(history ports.MessageHistory) *HistoryUseCase {
	return &HistoryUseCase{history: history}
}

func (uc *HistoryUseCase) Messages(ctx context.Context, filter domain.MessageFilter) (*domain.MessagePage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	query := filter
	query.Limit = limit + 1
	rows, err := uc.history.ListMessages(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &domain.MessagePage{Messages: rows}
	if len(rows) > limit {
		page.Messages = rows[:limit]
		page.HasMore = true
		cursor := page.Messages[limit-1].CreatedAt
		page.NextCursor = &cursor
	}
	if page.Messages == nil {
		page.Messages = []domain.MessageRecord{}
	}
	return page, nil
}
