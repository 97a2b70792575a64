package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/schema"
	"docchat/pkg/logger"
)

// embedBatchSize bounds the number of texts per embedding API request.
const embedBatchSize = 64

// maxConcurrentEmbedCalls bounds parallel embedding requests per ingestion.
const maxConcurrentEmbedCalls = 4

// IndexingPipeline turns raw PDF bytes into embedded chunks in the vector
// store: extract, split, embed, insert. When the insert fails it deletes
// whatever made it in, so a failed ingestion leaves no chunks behind.
type IndexingPipeline struct {
	extractor   interfaces.Extractor
	splitter    interfaces.Splitter
	embedder    interfaces.Embedder
	vectorStore interfaces.VectorStore
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	extractor interfaces.Extractor,
	splitter interfaces.Splitter,
	embedder interfaces.Embedder,
	vectorStore interfaces.VectorStore,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		extractor:   extractor,
		splitter:    splitter,
		embedder:    embedder,
		vectorStore: vectorStore,
		log:         log,
	}
}

// Run indexes one document and returns the number of chunks written.
func (p *IndexingPipeline) Run(ctx context.Context, documentID string, data []byte) (int, error) {
	pages, err := p.extractor.Extract(ctx, data)
	if err != nil {
		return 0, fmt.Errorf("extraction failed: %w", err)
	}
	p.log.Info(fmt.Sprintf("Extracted %d pages for document %s", len(pages), documentID))

	chunks, err := p.splitter.Split(ctx, documentID, pages)
	if err != nil {
		return 0, fmt.Errorf("splitting failed: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document contains no extractable text")
	}
	p.log.Info(fmt.Sprintf("Split document %s into %d chunks", documentID, len(chunks)))

	if err := p.embedChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("embedding failed: %w", err)
	}

	if err := p.vectorStore.Add(ctx, chunks); err != nil {
		// A partially applied insert would orphan chunks; sweep them out.
		if cleanupErr := p.vectorStore.DeleteByDocument(ctx, documentID); cleanupErr != nil {
			p.log.WithErr(cleanupErr).Error(fmt.Sprintf("Failed to clean up chunks of document %s after insert failure", documentID))
		}
		return 0, fmt.Errorf("vector store insert failed: %w", err)
	}

	return len(chunks), nil
}

// embedChunks fills in chunk embeddings, batching requests and running a
// bounded number of batches in parallel. Results are assigned by index, so
// concurrency does not reorder anything.
func (p *IndexingPipeline) embedChunks(ctx context.Context, chunks []*schema.Chunk) error {
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentEmbedCalls)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		eg.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			embeddings, err := p.embedder.Embed(gCtx, texts)
			if err != nil {
				return err
			}
			if len(embeddings) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = embeddings[i]
			}
			return nil
		})
	}

	return eg.Wait()
}
