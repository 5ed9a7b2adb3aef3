package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) AppendMessage(ctx context.Context, msg domain.MessageRecord) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO messages (id, channel_id, requester, role, content, model, prompt_tokens, completion_tokens, latency_ms, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		msg.ID, msg.Channel, msg.Requester, string(msg.Role), msg.Content, nullableString(msg.Model),
		nullableInt(int64(msg.PromptTokens)), nullableInt(int64(msg.CompletionTokens)), nullableInt(msg.LatencyMS),
		string(msg.Status), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns newest rows first.
func (r *MessageRepository) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.MessageRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where = append(where, fmt.Sprintf("channel_id = $%d", len(args)))
	}
	if filter.Requester != "" {
		args = append(args, filter.Requester)
		where = append(where, fmt.Sprintf("requester = $%d", len(args)))
	}
	if !filter.Before.IsZero() {
		args = append(args, filter.Before)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, channel_id, requester, role, content, COALESCE(model, ''), COALESCE(prompt_tokens, 0),
	COALESCE(completion_tokens, 0), COALESCE(latency_ms, 0), status, created_at
FROM messages
%s
ORDER BY created_at DESC
LIMIT $%d
`, whereSQL, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.MessageRecord, 0)
	for rows.Next() {
		var (
			msg    domain.MessageRecord
			role   string
			status string
		)
		if err := rows.Scan(
			&msg.ID, &msg.Channel, &msg.Requester, &role, &msg.Content, &msg.Model,
			&msg.PromptTokens, &msg.CompletionTokens, &msg.LatencyMS, &status, &msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.Status = domain.MessageStatus(status)
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func nullableInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
