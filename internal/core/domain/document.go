package domain

import (
	"io"
	"time"
)

type DocumentStatus string

const (
	StatusActive     DocumentStatus = "active"
	StatusInactive   DocumentStatus = "inactive"
	StatusProcessing DocumentStatus = "processing"
	StatusError      DocumentStatus = "error"
)

// VectorStatus tracks the indexing pipeline independently of the document lifecycle.
type VectorStatus string

const (
	VectorPending    VectorStatus = "pending"
	VectorProcessing VectorStatus = "processing"
	VectorIndexed    VectorStatus = "indexed"
	VectorError      VectorStatus = "error"
)

type Document struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	OriginalFilename string         `json:"original_filename"`
	FileSize         int64          `json:"file_size"`
	FileType         string         `json:"file_type"`
	Language         string         `json:"language"`
	EmbeddingModel   string         `json:"embedding_model"`
	EmbeddingVersion string         `json:"embedding_version"`
	Status           DocumentStatus `json:"status"`
	VectorStatus     VectorStatus   `json:"vector_status"`
	CountryCode      string         `json:"country_code,omitempty"`
	ContentHash      string         `json:"content_hash"`
	StorageKey       string         `json:"storage_key,omitempty"`
	ChunkCount       int            `json:"chunk_count"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ChunkRecord is one chunk ready for persistence. Position follows chunker output order.
type ChunkRecord struct {
	ID       string
	Position int
	Content  string
	Vector   []float32
}

// DocumentMetadata describes the source of indexed text.
type DocumentMetadata struct {
	OriginalFilename string
	FileType         string
	FileSize         int64
	Language         string
	StorageKey       string
}

type IndexRequest struct {
	Name        string
	Text        string
	CountryCode string
	Metadata    DocumentMetadata
}

type IndexResult struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

type DocumentFilter struct {
	Search      string
	CountryCode string
	Limit       int
	Offset      int
}

type DocumentPage struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

type UploadRequest struct {
	Filename    string
	Name        string
	CountryCode string
	Language    string
	Size        int64
	Body        io.Reader
}

type UploadResult struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
	StorageKey string `json:"storage_key"`
}

// IngestJob is the queued unit of work for asynchronous indexing.
type IngestJob struct {
	StorageKey  string    `json:"storage_key"`
	Filename    string    `json:"filename"`
	Name        string    `json:"name"`
	CountryCode string    `json:"country_code,omitempty"`
	Language    string    `json:"language"`
	FileSize    int64     `json:"file_size"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}
