package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

const DefaultUploadMaxBytes = 50 << 20

// contentIndexer is the part of IndexUseCase ingestion depends on.
type contentIndexer interface {
	Index(ctx context.Context, req domain.IndexRequest) (*domain.IndexResult, error)
	CheckDuplicate(ctx context.Context, text string) error
}

type UploadConfig struct {
	MaxBytes        int64
	AllowedTypes    []string
	DefaultCountry  string
	DefaultLanguage string
}

type UploadUseCase struct {
	indexer   contentIndexer
	extractor ports.TextExtractor
	storage   ports.ObjectStorage
	queue     ports.IngestQueue
	cfg       UploadConfig
}

func NewUploadUseCase(
	indexer contentIndexer,
	extractor ports.TextExtractor,
	storage ports.ObjectStorage,
	queue ports.IngestQueue,
	cfg UploadConfig,
) *UploadUseCase {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultUploadMaxBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{".pdf", ".md", ".txt"}
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &UploadUseCase{
		indexer:   indexer,
		extractor: extractor,
		storage:   storage,
		queue:     queue,
		cfg:       cfg,
	}
}

// Upload extracts, archives and indexes a source file synchronously.
func (uc *UploadUseCase) Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error) {
	raw, err := uc.readBody(req)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, req.Filename, bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", err)
	}
	if err := uc.indexer.CheckDuplicate(ctx, text); err != nil {
		return nil, err
	}

	key := storageKey(req.Filename)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	name := documentName(req)
	res, err := uc.indexer.Index(ctx, domain.IndexRequest{
		Name:        name,
		Text:        text,
		CountryCode: uc.countryCode(req.CountryCode),
		Metadata: domain.DocumentMetadata{
			OriginalFilename: filepath.Base(req.Filename),
			FileType:         fileType(req.Filename),
			FileSize:         int64(len(raw)),
			Language:         uc.language(req.Language),
			StorageKey:       key,
		},
	})
	if err != nil {
		uc.discard(ctx, key)
		return nil, err
	}

	return &domain.UploadResult{
		DocumentID: res.DocumentID,
		Name:       name,
		ChunkCount: res.ChunkCount,
		StorageKey: key,
	}, nil
}

// Enqueue archives a source file and hands indexing to the worker.
func (uc *UploadUseCase) Enqueue(ctx context.Context, req domain.UploadRequest) (*domain.IngestJob, error) {
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "enqueue upload", errors.New("ingest queue is not configured"))
	}
	raw, err := uc.readBody(req)
	if err != nil {
		return nil, err
	}

	key := storageKey(req.Filename)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	job := domain.IngestJob{
		StorageKey:  key,
		Filename:    filepath.Base(req.Filename),
		Name:        documentName(req),
		CountryCode: uc.countryCode(req.CountryCode),
		Language:    uc.language(req.Language),
		FileSize:    int64(len(raw)),
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := uc.queue.PublishIngestJob(ctx, job); err != nil {
		uc.discard(ctx, key)
		return nil, fmt.Errorf("publish ingest job: %w", err)
	}
	return &job, nil
}

func (uc *UploadUseCase) readBody(req domain.UploadRequest) ([]byte, error) {
	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("no file provided"))
	}
	ext := fileType(req.Filename)
	if !slices.Contains(uc.cfg.AllowedTypes, ext) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("unsupported file type %q", ext))
	}
	if req.Size > uc.cfg.MaxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("file exceeds %d bytes", uc.cfg.MaxBytes))
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, uc.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > uc.cfg.MaxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("file exceeds %d bytes", uc.cfg.MaxBytes))
	}
	return raw, nil
}

func (uc *UploadUseCase) discard(ctx context.Context, key string) {
	if err := uc.storage.Delete(ctx, key); err != nil {
		slog.Warn("source_file_cleanup_failed", "storage_key", key, "error", err)
	}
}

func (uc *UploadUseCase) countryCode(cc string) string {
	if cc = strings.TrimSpace(cc); cc != "" {
		return cc
	}
	return uc.cfg.DefaultCountry
}

func (uc *UploadUseCase) language(lang string) string {
	if lang = strings.TrimSpace(lang); lang != "" {
		return lang
	}
	return uc.cfg.DefaultLanguage
}

func documentName(req domain.UploadRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	base := filepath.Base(req.Filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func fileType(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func storageKey(filename string) string {
	return fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.txt"
	}
	return base
}
