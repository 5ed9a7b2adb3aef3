package ports

import (
	"context"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

// DocumentIndexer is the inbound contract for the indexing write path.
type DocumentIndexer interface {
	Index(ctx context.Context, req domain.IndexRequest) (*domain.IndexResult, error)
}

// DocumentUploader is the inbound contract for source file ingestion.
type DocumentUploader interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.UploadResult, error)
	Enqueue(ctx context.Context, req domain.UploadRequest) (*domain.IngestJob, error)
}

// DocumentCatalog is the inbound read/delete model for indexed documents.
type DocumentCatalog interface {
	List(ctx context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error)
	Delete(ctx context.Context, id string, deleteFile bool) error
}

// IngestProcessor is the inbound contract for asynchronous ingest jobs.
type IngestProcessor interface {
	Process(ctx context.Context, job domain.IngestJob) error
}

// Searcher is the query entry point of the retrieval subsystem.
type Searcher interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.RetrievedChunk, error)
}

// PolicyAsker answers a single question without conversation state.
type PolicyAsker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.AskResult, error)
}

// ConversationHandler answers a question in the context of a conversation.
type ConversationHandler interface {
	Handle(ctx context.Context, inquiry domain.Inquiry) (*domain.Reply, error)
}

// MessageBrowser pages through the message log.
type MessageBrowser interface {
	Messages(ctx context.Context, filter domain.MessageFilter) (*domain.MessagePage, error)
}

// EventSubscriber hands out live update streams. The returned func stops the
// subscription and closes the channel.
type EventSubscriber interface {
	Subscribe(buffer int) (<-chan domain.Event, func())
}
