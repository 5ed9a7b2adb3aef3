package domain

import "time"

type EventType string

const (
	EventMessage         EventType = "message"
	EventDocumentIndexed EventType = "document_indexed"
	EventDocumentDeleted EventType = "document_deleted"
)

// Event is a live update fanned out to subscribers. Origin identifies the
// process instance that produced it.
type Event struct {
	Type       EventType      `json:"type"`
	Origin     string         `json:"origin,omitempty"`
	At         time.Time      `json:"at"`
	Message    *MessageRecord `json:"message,omitempty"`
	DocumentID string         `json:"document_id,omitempty"`
	ChunkCount int            `json:"chunk_count,omitempty"`
}
