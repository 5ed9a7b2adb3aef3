package console

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func TestAppendMessageLogsRow(t *testing.T) {
	var buf bytes.Buffer
	log := NewMessageLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := log.AppendMessage(context.Background(), domain.MessageRecord{
		ID: "m1", Channel: "C1", Requester: "U1", Role: domain.RoleAssistant, Content: "15 days", PromptTokens: 10, Status: domain.MessageOK,
	}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "message" || entry["channel"] != "C1" || entry["prompt_tokens"] != float64(10) {
		t.Fatalf("unexpected entry %v", entry)
	}
}
