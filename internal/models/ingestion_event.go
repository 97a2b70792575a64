package models

import "time"

// Ingestion event types published to the event broker.
const (
	EventDocumentIngested = "document.ingested"
)

// IngestionEvent is the payload published after a document has been
// successfully ingested.
type IngestionEvent struct {
	Type       string    `json:"type"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	ChunkCount int       `json:"chunk_count"`
	OccurredAt time.Time `json:"occurred_at"`
}
