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

const maxListLimit = 200

type CatalogUseCase struct {
	store   ports.DocumentStore
	storage ports.ObjectStorage
	events  ports.EventPublisher
}

func NewCatalogUseCase(store ports.DocumentStore, storage ports.ObjectStorage, events ports.EventPublisher) *CatalogUseCase {
	return &CatalogUseCase{store: store, storage: storage, events: events}
}

func (uc *CatalogUseCase) List(ctx context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	filter.Limit = min(filter.Limit, maxListLimit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Search = strings.TrimSpace(filter.Search)

	page, err := uc.store.ListDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return page, nil
}

// Delete removes a document and its chunks; the archived source file goes too when deleteFile is set.
func (uc *CatalogUseCase) Delete(ctx context.Context, id string, deleteFile bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.WrapError(domain.ErrInvalidInput, "delete document", errors.New("id is required"))
	}

	doc, err := uc.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if err := uc.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if deleteFile && doc.StorageKey != "" && uc.storage != nil {
		if err := uc.storage.Delete(ctx, doc.StorageKey); err != nil {
			slog.Warn("source_file_delete_failed", "document_id", id, "storage_key", doc.StorageKey, "error", err)
		}
	}

	if uc.events != nil {
		uc.events.Publish(domain.Event{
			Type:       domain.EventDocumentDeleted,
			At:         time.Now().UTC(),
			DocumentID: id,
		})
	}
	return nil
}
