package prompt

import (
	"strings"
	"testing"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func TestUserIncludesContextAndQuestion(t *testing.T) {
	got := User(domain.AnswerInput{Question: "how many sick days?", Context: "Sick leave: 12 days"})
	if !strings.Contains(got, "how many sick days?") || !strings.Contains(got, "Sick leave: 12 days") {
		t.Fatalf("unexpected prompt: %s", got)
	}
	if strings.Contains(got, "Previous conversation context") {
		t.Fatalf("history block must be absent without history")
	}
}

func TestQuestionWithHistory(t *testing.T) {
	got := Question("remove casual leave", []domain.Turn{
		{Role: domain.RoleUser, Content: "total leave?"},
		{Role: domain.RoleAssistant, Content: "27 days"},
	})
	want := "Previous conversation context:\nuser: total leave?\nassistant: 27 days\n\nCurrent question: remove casual leave"
	if got != want {
		t.Fatalf("Question() = %q, want %q", got, want)
	}
}
