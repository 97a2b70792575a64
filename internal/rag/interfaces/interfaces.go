package interfaces

import (
	"context"
	"time"

	"docchat/internal/models"
	"docchat/internal/rag/schema"
)

// Extractor turns raw PDF bytes into a sequence of page-level text strings.
type Extractor interface {
	Extract(ctx context.Context, data []byte) ([]string, error)
}

// Splitter splits page texts into chunks. Chunking must be deterministic and
// must never cover the same character range twice.
type Splitter interface {
	Split(ctx context.Context, documentID string, pages []string) ([]*schema.Chunk, error)
}

// Embedder produces fixed-length vectors for text. The same Embedder must be
// used at ingestion and at question time so both live in one embedding space.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore stores chunk embeddings and answers scoped nearest-neighbour
// queries. Query results are restricted to the given document id.
type VectorStore interface {
	Add(ctx context.Context, chunks []*schema.Chunk) error
	Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]*schema.Chunk, error)
	// DeleteByDocument removes every chunk of a document. Used both for
	// cleanup and to roll back a failed ingestion.
	DeleteByDocument(ctx context.Context, documentID string) error
}

// LLM generates a textual answer for a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// FileStore persists uploaded originals under a generated name and returns
// a stable path for the metadata row.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Remove(ctx context.Context, path string) error
}

// DocumentRepository is the metadata store for uploaded documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
}

// AnswerCache caches generated answers keyed by document and question.
// A miss is reported as (found=false), not as an error.
type AnswerCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, answer string, ttl time.Duration) error
}

// EventPublisher publishes ingestion lifecycle events. Implementations are
// best-effort; callers log and continue on failure.
type EventPublisher interface {
	PublishIngested(ctx context.Context, event *models.IngestionEvent) error
}
