package schema

// Chunk is the central data carrier of the ingestion and retrieval pipelines:
// a contiguous span of extracted document text together with its embedding.
type Chunk struct {
	// ID is the unique identifier of this chunk.
	ID string

	// DocumentID references the document the chunk was extracted from.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Position is the zero-based order of the chunk within its document.
	Position int

	// Embedding is the vector representation of Text.
	Embedding []float32

	// Score is the similarity score assigned by the vector store on
	// retrieval. Zero for chunks that have not been retrieved.
	Score float32
}
