package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

const uniqueViolation = "23505"

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the pgvector extension and tables. dimension fixes the
// embedding column width and must match the embedding model.
func (r *DocumentRepository) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "ensure schema", errors.New("embedding dimension must be positive"))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025081501)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	original_filename TEXT NOT NULL DEFAULT '',
	file_size BIGINT NOT NULL DEFAULT 0,
	file_type TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT 'en',
	embedding_model TEXT NOT NULL,
	embedding_version TEXT NOT NULL,
	status TEXT NOT NULL,
	vector_status TEXT NOT NULL,
	country_code TEXT,
	content_hash TEXT NOT NULL,
	storage_key TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT documents_content_hash_key UNIQUE (content_hash)
);

CREATE TABLE IF NOT EXISTS chunks (
	id UUID PRIMARY KEY,
	document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position INT NOT NULL,
	country_code TEXT,
	content TEXT NOT NULL,
	embedding vector(%d) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE chunks ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now();

CREATE TABLE IF NOT EXISTS messages (
	id UUID PRIMARY KEY,
	channel_id TEXT NOT NULL,
	requester TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	model TEXT,
	prompt_tokens INT,
	completion_tokens INT,
	latency_ms BIGINT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_country_code ON chunks(country_code);
CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_messages_channel_requester ON messages(channel_id, requester);
`, dimension)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// IndexDocument stores the document as processing, inserts its chunks and marks
// it indexed, all in one transaction. A concurrent insert of the same content
// surfaces as a DuplicateContentError.
func (r *DocumentRepository) IndexDocument(ctx context.Context, doc *domain.Document, chunks []domain.ChunkRecord) error {
	err := r.indexTx(ctx, doc, chunks)
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		dup := &domain.DuplicateContentError{ContentHash: doc.ContentHash}
		if existing, findErr := r.FindByContentHash(ctx, doc.ContentHash); findErr == nil {
			dup.ExistingID = existing.ID
			dup.ExistingName = existing.Name
		}
		return dup
	}
	return err
}

func (r *DocumentRepository) indexTx(ctx context.Context, doc *domain.Document, chunks []domain.ChunkRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO documents (
	id, name, original_filename, file_size, file_type, language, embedding_model, embedding_version,
	status, vector_status, country_code, content_hash, storage_key, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.Name, doc.OriginalFilename, doc.FileSize, doc.FileType, doc.Language,
		doc.EmbeddingModel, doc.EmbeddingVersion, string(domain.StatusProcessing), string(domain.VectorProcessing),
		nullableString(doc.CountryCode), doc.ContentHash, nullableString(doc.StorageKey), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	if len(chunks) > 0 {
		if err := insertChunks(ctx, tx, doc, chunks); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
UPDATE documents SET status = $2, vector_status = $3, updated_at = $4 WHERE id = $1
`, doc.ID, string(domain.StatusActive), string(domain.VectorIndexed), now); err != nil {
		return fmt.Errorf("mark document indexed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index tx: %w", err)
	}

	doc.Status = domain.StatusActive
	doc.VectorStatus = domain.VectorIndexed
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = now
	return nil
}

// insertChunks writes every chunk in one statement, in position order.
func insertChunks(ctx context.Context, tx *sql.Tx, doc *domain.Document, chunks []domain.ChunkRecord) error {
	ids := make([]string, len(chunks))
	positions := make([]int32, len(chunks))
	contents := make([]string, len(chunks))
	vectors := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		positions[i] = int32(chunk.Position)
		contents[i] = chunk.Content
		vectors[i] = pgvector.NewVector(chunk.Vector).String()
	}

	_, err := tx.ExecContext(ctx, `
INSERT INTO chunks (id, document_id, position, country_code, content, embedding, created_at)
SELECT u.id, $1, u.position, $2, u.content, u.embedding::vector, $3
FROM unnest($4::uuid[], $5::int[], $6::text[], $7::text[]) AS u(id, position, content, embedding)
ORDER BY u.position
`, doc.ID, nullableString(doc.CountryCode), doc.CreatedAt, ids, positions, contents, vectors)
	if err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(chunks), err)
	}
	return nil
}

const documentColumns = `d.id, d.name, d.original_filename, d.file_size, d.file_type, d.language,
	d.embedding_model, d.embedding_version, d.status, d.vector_status, COALESCE(d.country_code, ''),
	d.content_hash, COALESCE(d.storage_key, ''), d.created_at, d.updated_at,
	(SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		doc          domain.Document
		status       string
		vectorStatus string
	)
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.OriginalFilename, &doc.FileSize, &doc.FileType, &doc.Language,
		&doc.EmbeddingModel, &doc.EmbeddingVersion, &status, &vectorStatus, &doc.CountryCode,
		&doc.ContentHash, &doc.StorageKey, &doc.CreatedAt, &doc.UpdatedAt, &doc.ChunkCount,
	)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	doc.VectorStatus = domain.VectorStatus(vectorStatus)
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) FindByContentHash(ctx context.Context, hash string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents d WHERE d.content_hash = $1`, hash)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "find by content hash", fmt.Errorf("hash=%s", hash))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, filter domain.DocumentFilter) (*domain.DocumentPage, error) {
	search := strings.TrimSpace(filter.Search)
	where := `WHERE ($1 = '' OR d.name ILIKE '%' || $1 || '%' OR d.original_filename ILIKE '%' || $1 || '%')
	AND ($2 = '' OR d.country_code = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents d `+where, search, filter.CountryCode).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents d `+where+`
ORDER BY d.created_at DESC
LIMIT $3 OFFSET $4`, search, filter.CountryCode, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	page := &domain.DocumentPage{Documents: []domain.Document{}, Total: total}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		page.Documents = append(page.Documents, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return page, nil
}

// DeleteDocument removes the document; its chunks go with it via ON DELETE CASCADE.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id=%s", id))
	}
	return nil
}

// NearestChunks ranks by negative inner product (<#>), so lower is closer.
// Chunks of inactive documents are never returned.
func (r *DocumentRepository) NearestChunks(ctx context.Context, vector []float32, partitions []string, limit int) ([]domain.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.document_id, d.name, COALESCE(c.country_code, ''), c.position, c.content,
	c.embedding <#> $1 AS distance
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE (c.country_code = ANY($2::text[]) OR c.country_code IS NULL)
	AND d.status <> 'inactive'
ORDER BY c.embedding <#> $1 ASC
LIMIT $3
`, pgvector.NewVector(vector), partitions, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RetrievedChunk, 0, limit)
	for rows.Next() {
		var chunk domain.RetrievedChunk
		if err := rows.Scan(
			&chunk.ChunkID, &chunk.DocumentID, &chunk.DocumentName, &chunk.CountryCode,
			&chunk.Position, &chunk.Content, &chunk.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.Score = 1 - chunk.Distance
		out = append(out, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
