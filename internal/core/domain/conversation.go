package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is the bounded recent-exchange buffer of one channel/requester pair.
type Conversation struct {
	Key   string `json:"key"`
	Turns []Turn `json:"turns"`
}

// Recent returns at most n trailing turns.
func (c Conversation) Recent(n int) []Turn {
	if n <= 0 || len(c.Turns) == 0 {
		return nil
	}
	if n > len(c.Turns) {
		n = len(c.Turns)
	}
	out := make([]Turn, n)
	copy(out, c.Turns[len(c.Turns)-n:])
	return out
}

func ConversationKey(channel, requester string) string {
	return channel + ":" + requester
}

// Inquiry is one question arriving from a chat surface or the HTTP API.
type Inquiry struct {
	Channel     string
	Requester   string
	Text        string
	CountryCode string
}

type Reply struct {
	Text          string           `json:"answer"`
	Sources       []RetrievedChunk `json:"sources,omitempty"`
	ContextSource ContextSource    `json:"context_source,omitempty"`
	Degraded      bool             `json:"degraded,omitempty"`
	Model         string           `json:"model,omitempty"`
	Usage         TokenUsage       `json:"-"`
}

type MessageStatus string

const (
	MessageOK       MessageStatus = "ok"
	MessageDegraded MessageStatus = "degraded"
	MessageLimited  MessageStatus = "rate_limited"
)

// MessageRecord is one row of the message log.
type MessageRecord struct {
	ID               string        `json:"id"`
	Channel          string        `json:"channel"`
	Requester        string        `json:"requester"`
	Role             Role          `json:"role"`
	Content          string        `json:"content"`
	Model            string        `json:"model,omitempty"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	LatencyMS        int64         `json:"latency_ms,omitempty"`
	Status           MessageStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
}

// MessageFilter selects message log rows, newest first, older than Before when set.
type MessageFilter struct {
	Channel   string
	Requester string
	Before    time.Time
	Limit     int
}

type MessagePage struct {
	Messages   []MessageRecord `json:"messages"`
	HasMore    bool            `json:"has_more"`
	NextCursor *time.Time      `json:"next_cursor,omitempty"`
}
