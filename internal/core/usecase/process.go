package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

type ProcessIngestUseCase struct {
	indexer   contentIndexer
	extractor ports.TextExtractor
	storage   ports.ObjectStorage
}

func NewProcessIngestUseCase(
	indexer contentIndexer,
	extractor ports.TextExtractor,
	storage ports.ObjectStorage,
) *ProcessIngestUseCase {
	return &ProcessIngestUseCase{
		indexer:   indexer,
		extractor: extractor,
		storage:   storage,
	}
}

// Process indexes one queued source file. Jobs are not redelivered, so a
// failed job removes its archived file. Duplicate content comes back as a
// *domain.DuplicateContentError for the caller to acknowledge.
func (uc *ProcessIngestUseCase) Process(ctx context.Context, job domain.IngestJob) error {
	text, err := uc.extractText(ctx, job)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			uc.discard(ctx, job.StorageKey)
		}
		return err
	}

	res, err := uc.indexer.Index(ctx, domain.IndexRequest{
		Name:        job.Name,
		Text:        text,
		CountryCode: job.CountryCode,
		Metadata: domain.DocumentMetadata{
			OriginalFilename: job.Filename,
			FileType:         fileType(job.Filename),
			FileSize:         job.FileSize,
			Language:         job.Language,
			StorageKey:       job.StorageKey,
		},
	})
	if err != nil {
		uc.discard(ctx, job.StorageKey)
		var dup *domain.DuplicateContentError
		if errors.As(err, &dup) {
			return dup
		}
		return fmt.Errorf("index document: %w", err)
	}

	slog.Info("document_indexed",
		"document_id", res.DocumentID,
		"name", job.Name,
		"chunks", res.ChunkCount,
	)
	return nil
}

func (uc *ProcessIngestUseCase) extractText(ctx context.Context, job domain.IngestJob) (string, error) {
	body, err := uc.storage.Open(ctx, job.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer body.Close()

	text, err := uc.extractor.Extract(ctx, job.Filename, body)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", err)
	}
	return text, nil
}

func (uc *ProcessIngestUseCase) discard(ctx context.Context, key string) {
	if err := uc.storage.Delete(ctx, key); err != nil {
		slog.Warn("source_file_cleanup_failed", "storage_key", key, "error", err)
	}
}
