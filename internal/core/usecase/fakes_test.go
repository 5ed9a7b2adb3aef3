package usecase

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

type storedChunk struct {
	chunk  domain.RetrievedChunk
	vector []float32
}

// docStoreFake ranks chunks by negative inner product, like the store's <#> operator.
type docStoreFake struct {
	mu sync.Mutex

	docs   map[string]*domain.Document
	chunks []storedChunk

	indexErr   error
	nearestErr error
	findErr    error
	deleteErr  error

	lastPartitions []string
	lastLimit      int
	lastFilter     domain.DocumentFilter
	indexCalls     int
}

func newDocStoreFake() *docStoreFake {
	return &docStoreFake{docs: make(map[string]*domain.Document)}
}

func (f *docStoreFake) IndexDocument(_ context.Context, doc *domain.Document, chunks []domain.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexCalls++
	if f.indexErr != nil {
		return f.indexErr
	}
	for _, existing := range f.docs {
		if existing.ContentHash == doc.ContentHash {
			return &domain.DuplicateContentError{ContentHash: doc.ContentHash, ExistingID: existing.ID, ExistingName: existing.Name}
		}
	}
	stored := *doc
	stored.VectorStatus = domain.VectorIndexed
	stored.Status = domain.StatusActive
	stored.ChunkCount = len(chunks)
	f.docs[doc.ID] = &stored
	for _, c := range chunks {
		f.chunks = append(f.chunks, storedChunk{
			chunk: domain.RetrievedChunk{
				ChunkID:      c.ID,
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				CountryCode:  doc.CountryCode,
				Position:     c.Position,
				Content:      c.Content,
			},
			vector: c.Vector,
		})
	}
	return nil
}

func (f *docStoreFake) addChunk(chunk domain.RetrievedChunk, vector []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, storedChunk{chunk: chunk, vector: vector})
}

func (f *docStoreFake) FindByContentHash(_ context.Context, hash string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, doc := range f.docs {
		if doc.ContentHash == hash {
			copyDoc := *doc
			return &copyDoc, nil
		}
	}
	return nil, domain.ErrDocumentNotFound
}

func (f *docStoreFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docStoreFake) ListDocuments(_ context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	page := &domain.DocumentPage{}
	for _, doc := range f.docs {
		if filter.Search != "" && !strings.Contains(strings.ToLower(doc.Name), strings.ToLower(filter.Search)) {
			continue
		}
		page.Documents = append(page.Documents, *doc)
	}
	page.Total = len(page.Documents)
	return page, nil
}

func (f *docStoreFake) DeleteDocument(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.docs[id]; !ok {
		return domain.ErrDocumentNotFound
	}
	delete(f.docs, id)
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.chunk.DocumentID != id {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

func (f *docStoreFake) NearestChunks(_ context.Context, vector []float32, partitions []string, limit int) ([]domain.RetrievedChunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPartitions = partitions
	f.lastLimit = limit
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}

	out := make([]domain.RetrievedChunk, 0, len(f.chunks))
	for _, c := range f.chunks {
		if c.chunk.CountryCode != "" && !slices.Contains(partitions, c.chunk.CountryCode) {
			continue
		}
		chunk := c.chunk
		chunk.Distance = -dot(vector, c.vector)
		chunk.Score = 1 - chunk.Distance
		out = append(out, chunk)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// embedderFake maps text to a vector through a lookup, defaulting to a unit vector.
type embedderFake struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
	err     error
	calls   [][]string
}

func (f *embedderFake) vectorFor(text string) []float32 {
	if v, ok := f.vectors[text]; ok {
		return v
	}
	dim := f.dim
	if dim == 0 {
		dim = 3
	}
	v := make([]float32, dim)
	v[0] = 1
	return v
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectorFor(text)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string {
	return f.chunks
}

type answererFake struct {
	mu     sync.Mutex
	text   string
	err    error
	inputs []domain.AnswerInput
}

func (f *answererFake) Answer(_ context.Context, input domain.AnswerInput) (*domain.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Completion{
		Text:  f.text,
		Model: "fake-model",
		Usage: domain.TokenUsage{PromptTokens: 11, CompletionTokens: 7},
	}, nil
}

func (f *answererFake) lastInput() domain.AnswerInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return domain.AnswerInput{}
	}
	return f.inputs[len(f.inputs)-1]
}

type corpusFake string

func (c corpusFake) Text() string { return string(c) }

var errBoom = errors.New("boom")
