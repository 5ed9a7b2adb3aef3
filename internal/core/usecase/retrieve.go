package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

const DefaultTopK = 10

type SearchUseCase struct {
	embedder    ports.Embedder
	store       ports.DocumentStore
	classifier  *QueryClassifier
	defaultTopK int
}

func NewSearchUseCase(
	embedder ports.Embedder,
	store ports.DocumentStore,
	classifier *QueryClassifier,
	defaultTopK int,
) *SearchUseCase {
	if classifier == nil {
		classifier = NewQueryClassifier(nil)
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &SearchUseCase{
		embedder:    embedder,
		store:       store,
		classifier:  classifier,
		defaultTopK: defaultTopK,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RetrievedChunk, error) {
	text := strings.TrimSpace(query.Query)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	topK := query.TopK
	if topK <= 0 {
		topK = uc.defaultTopK
	}

	vector, err := uc.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	partitions := domain.PartitionsFor(query.CountryCode)
	rule, matched := uc.classifier.Classify(text)

	candidates, err := uc.store.NearestChunks(ctx, vector, partitions, candidateLimit(rule, matched, topK))
	if err != nil {
		return nil, fmt.Errorf("nearest chunks: %w", err)
	}
	candidates = visibleIn(candidates, partitions)

	if matched {
		candidates = rerankByBoost(candidates, rule)
	}
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func visibleIn(chunks []domain.RetrievedChunk, partitions []string) []domain.RetrievedChunk {
	out := chunks[:0]
	for _, chunk := range chunks {
		if chunk.CountryCode == "" || slices.Contains(partitions, chunk.CountryCode) {
			out = append(out, chunk)
		}
	}
	return out
}
