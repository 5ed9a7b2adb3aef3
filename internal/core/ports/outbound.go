package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

// DocumentStore persists documents and chunks and answers nearest-neighbor queries.
type DocumentStore interface {
	// IndexDocument inserts the document and its chunks and marks it indexed
	// in a single transaction.
	IndexDocument(ctx context.Context, doc *domain.Document, chunks []domain.ChunkRecord) error
	FindByContentHash(ctx context.Context, hash string) (*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error)
	DeleteDocument(ctx context.Context, id string) error
	// NearestChunks returns chunks tagged with one of partitions or untagged,
	// ordered by ascending distance.
	NearestChunks(ctx context.Context, vector []float32, partitions []string, limit int) ([]domain.RetrievedChunk, error)
}

// MessageLog records conversation messages.
type MessageLog interface {
	AppendMessage(ctx context.Context, msg domain.MessageRecord) error
}

// MessageHistory reads the message log back for admins.
type MessageHistory interface {
	ListMessages(ctx context.Context, filter domain.MessageFilter) ([]domain.MessageRecord, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// IngestQueue publishes/consumes asynchronous indexing jobs.
type IngestQueue interface {
	PublishIngestJob(ctx context.Context, job domain.IngestJob) error
	SubscribeIngestJobs(ctx context.Context, handler func(context.Context, domain.IngestJob) error) error
}

// TextExtractor extracts plain text from a source file.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, body io.Reader) (string, error)
	Supports(filename string) bool
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into retrievable chunks.
type Chunker interface {
	Split(text string) []string
}

// Answerer produces the user-facing answer from a question and its context.
type Answerer interface {
	Answer(ctx context.Context, input domain.AnswerInput) (*domain.Completion, error)
}

// PolicyCorpus is the fallback context: all raw policy text concatenated.
type PolicyCorpus interface {
	Text() string
}

// ConversationStore keeps bounded per-requester conversation state.
type ConversationStore interface {
	Load(key string) domain.Conversation
	Append(key string, turns ...domain.Turn) domain.Conversation
}

// RequesterLimiter is a per-requester admission check that never blocks.
type RequesterLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// EventPublisher fans out live updates.
type EventPublisher interface {
	Publish(event domain.Event)
}
