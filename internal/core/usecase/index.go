package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

type IndexConfig struct {
	EmbeddingModel   string
	EmbeddingVersion string
	Dimension        int
	BatchSize        int
	DefaultLanguage  string
}

type IndexUseCase struct {
	store    ports.DocumentStore
	chunker  ports.Chunker
	embedder ports.Embedder
	events   ports.EventPublisher
	cfg      IndexConfig
	now      func() time.Time
}

func NewIndexUseCase(
	store ports.DocumentStore,
	chunker ports.Chunker,
	embedder ports.Embedder,
	events ports.EventPublisher,
	cfg IndexConfig,
) *IndexUseCase {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &IndexUseCase{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		events:   events,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ContentHash is the de-duplication key of a document's text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (uc *IndexUseCase) Index(ctx context.Context, req domain.IndexRequest) (*domain.IndexResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "index document", errors.New("name is required"))
	}

	hash := ContentHash(req.Text)
	if err := uc.ensureUnique(ctx, hash); err != nil {
		return nil, err
	}

	chunks := uc.chunker.Split(req.Text)
	vectors, err := uc.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	language := req.Metadata.Language
	if language == "" {
		language = uc.cfg.DefaultLanguage
	}
	doc := &domain.Document{
		ID:               uuid.NewString(),
		Name:             name,
		OriginalFilename: req.Metadata.OriginalFilename,
		FileSize:         req.Metadata.FileSize,
		FileType:         req.Metadata.FileType,
		Language:         language,
		EmbeddingModel:   uc.cfg.EmbeddingModel,
		EmbeddingVersion: uc.cfg.EmbeddingVersion,
		Status:           domain.StatusProcessing,
		VectorStatus:     domain.VectorProcessing,
		CountryCode:      strings.TrimSpace(req.CountryCode),
		ContentHash:      hash,
		StorageKey:       req.Metadata.StorageKey,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	records := make([]domain.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.ChunkRecord{
			ID:       uuid.NewString(),
			Position: i,
			Content:  chunk,
			Vector:   vectors[i],
		}
	}

	if err := uc.store.IndexDocument(ctx, doc, records); err != nil {
		return nil, fmt.Errorf("persist document: %w", err)
	}

	if uc.events != nil {
		uc.events.Publish(domain.Event{
			Type:       domain.EventDocumentIndexed,
			At:         now,
			DocumentID: doc.ID,
			ChunkCount: len(records),
		})
	}

	return &domain.IndexResult{DocumentID: doc.ID, ChunkCount: len(records)}, nil
}

// CheckDuplicate reports a DuplicateContentError when text is already indexed.
func (uc *IndexUseCase) CheckDuplicate(ctx context.Context, text string) error {
	return uc.ensureUnique(ctx, ContentHash(text))
}

func (uc *IndexUseCase) ensureUnique(ctx context.Context, hash string) error {
	existing, err := uc.store.FindByContentHash(ctx, hash)
	switch {
	case err == nil:
		return &domain.DuplicateContentError{ContentHash: hash, ExistingID: existing.ID, ExistingName: existing.Name}
	case errors.Is(err, domain.ErrDocumentNotFound):
		return nil
	default:
		return fmt.Errorf("lookup content hash: %w", err)
	}
}

func (uc *IndexUseCase) embed(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += uc.cfg.BatchSize {
		end := min(start+uc.cfg.BatchSize, len(chunks))
		batch, err := uc.embedder.Embed(ctx, chunks[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		if len(batch) != end-start {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), end-start),
			)
		}
		vectors = append(vectors, batch...)
	}

	if err := uc.checkDimensions(vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (uc *IndexUseCase) checkDimensions(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	want := uc.cfg.Dimension
	if want <= 0 {
		want = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != want {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), want),
			)
		}
	}
	return nil
}
