package pipeline

import (
	"context"
	"fmt"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/schema"
	"docchat/pkg/logger"
)

// RetrievalPipeline embeds a question and fetches the nearest chunks of one
// document from the vector store.
type RetrievalPipeline struct {
	embedder    interfaces.Embedder
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(embedder interfaces.Embedder, vectorStore interfaces.VectorStore, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run returns the top-k chunks of documentID most similar to the question.
func (p *RetrievalPipeline) Run(ctx context.Context, question, documentID string, topK int) ([]*schema.Chunk, error) {
	embeddings, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for the question")
	}

	chunks, err := p.vectorStore.Query(ctx, embeddings[0], topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	p.log.Info(fmt.Sprintf("Retrieved %d chunks for document %s", len(chunks), documentID))

	return chunks, nil
}
