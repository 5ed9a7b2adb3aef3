package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

const (
	MessageNoDocuments = "I don't have access to any policy documents at the moment. Please make sure policy documents are uploaded."
	MessageOffTopic    = "I can only help with questions related to leave policies, vacation time, sick leave, and other time-off policies. Please ask a question about these topics."
	MessageFailure     = "I'm sorry, I encountered an error while processing your question. Please try again later."
	MessageGreeting    = "Hi! I'm your leave policy assistant. Ask me anything about vacation days, sick leave, maternity/paternity leave, holidays, or other time-off policies."
)

var (
	policyKeywords = []string{
		"leave", "vacation", "sick", "holiday", "time off", "pto", "maternity", "paternity",
		"bereavement", "annual", "policy", "days", "hours", "total", "number", "how many",
		"casual", "earned", "marriage", "paw", "tenure", "calendar", "year", "get", "entitled",
	}
	followUpPhrases = []string{
		"total number", "just give me", "how much", "what is the", "tell me the",
		"give me the", "what are the", "how many total",
	}
	offTopicKeywords = []string{"weather", "password", "lunch", "time now", "date today"}
)

type AskConfig struct {
	TopK   int
	UseRAG bool
}

type AskUseCase struct {
	searcher ports.Searcher
	corpus   ports.PolicyCorpus
	answerer ports.Answerer
	cfg      AskConfig
}

func NewAskUseCase(
	searcher ports.Searcher,
	corpus ports.PolicyCorpus,
	answerer ports.Answerer,
	cfg AskConfig,
) *AskUseCase {
	return &AskUseCase{
		searcher: searcher,
		corpus:   corpus,
		answerer: answerer,
		cfg:      cfg,
	}
}

// Ask answers one question. Collaborator failures degrade to a generic reply
// instead of an error; only invalid input is returned as an error.
func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error) {
	started := time.Now()
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	if IsOffTopic(question) {
		return &domain.AskResult{Text: MessageOffTopic, ContextSource: domain.ContextNone}, nil
	}

	policyContext, sources, source := uc.assembleContext(ctx, question, req)
	if source == domain.ContextNone {
		return &domain.AskResult{Text: MessageNoDocuments, ContextSource: source}, nil
	}

	completion, err := uc.answerer.Answer(ctx, domain.AnswerInput{
		Question: question,
		Context:  policyContext,
		History:  req.History,
	})
	if err != nil {
		slog.Error("answer_failed",
			"error", err,
			"temporary", domain.IsKind(err, domain.ErrTemporary),
			"context_source", source,
		)
		return &domain.AskResult{
			Text:          MessageFailure,
			Sources:       sources,
			ContextSource: source,
			Degraded:      true,
			Latency:       time.Since(started),
		}, nil
	}

	return &domain.AskResult{
		Text:          strings.TrimSpace(completion.Text),
		Sources:       sources,
		ContextSource: source,
		Model:         completion.Model,
		Usage:         completion.Usage,
		Latency:       time.Since(started),
	}, nil
}

func (uc *AskUseCase) assembleContext(ctx context.Context, question string, req domain.AskRequest) (string, []domain.RetrievedChunk, domain.ContextSource) {
	if uc.cfg.UseRAG && uc.searcher != nil {
		chunks, err := uc.searcher.Search(ctx, domain.SearchQuery{
			Query:       question,
			CountryCode: req.CountryCode,
			TopK:        firstPositive(req.TopK, uc.cfg.TopK),
		})
		switch {
		case err != nil:
			slog.Warn("retrieval_degraded", "error", err)
		case len(chunks) > 0:
			return joinContext(chunks), chunks, domain.ContextRetrieval
		default:
			slog.Info("retrieval_empty", "country_code", req.CountryCode)
		}
	}

	if uc.corpus != nil {
		if text := uc.corpus.Text(); strings.TrimSpace(text) != "" {
			return text, nil, domain.ContextFallback
		}
	}
	return "", nil, domain.ContextNone
}

// IsOffTopic reports questions that are clearly unrelated to leave policy.
func IsOffTopic(question string) bool {
	q := strings.ToLower(question)
	if containsAny(q, policyKeywords) || containsAny(q, followUpPhrases) {
		return false
	}
	return containsAny(q, offTopicKeywords)
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func joinContext(chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	for idx, chunk := range chunks {
		if idx > 0 {
			b.WriteString("\n\n")
		}
		name := chunk.DocumentName
		if name == "" {
			name = chunk.DocumentID
		}
		fmt.Fprintf(&b, "[%d] %s (similarity %.3f)\n%s", idx+1, name, chunk.Score, chunk.Content)
	}
	return b.String()
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
