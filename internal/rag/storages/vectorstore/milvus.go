package vectorstore

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docchat/internal/database/milvus"
	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/schema"
	"docchat/pkg/logger"
)

// MilvusStore implements the VectorStore interface on top of the Milvus
// client, using a filter expression on document_id to scope every query to a
// single document.
type MilvusStore struct {
	log        *logger.Logger
	client     client.Client
	collection string
	nprobe     int
}

// NewMilvusStore creates a MilvusStore over the shared Milvus client.
func NewMilvusStore(milvusClient *milvus.MilvusClient, log *logger.Logger) (*MilvusStore, error) {
	if milvusClient == nil || milvusClient.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{
		log:        log,
		client:     milvusClient.Client,
		collection: milvusClient.Config.CollectionName,
		nprobe:     milvusClient.Config.SearchNprobe,
	}, nil
}

// Add inserts the chunks as one batch.
func (s *MilvusStore) Add(ctx context.Context, chunks []*schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	documentIDs := make([]string, len(chunks))
	texts := make([]string, len(chunks))
	positions := make([]int64, len(chunks))
	embeddings := make([][]float32, len(chunks))

	dim := 0
	for i, c := range chunks {
		ids[i] = c.ID
		documentIDs[i] = c.DocumentID
		texts[i] = c.Text
		positions[i] = int64(c.Position)
		embeddings[i] = c.Embedding
		if len(c.Embedding) > dim {
			dim = len(c.Embedding)
		}
	}

	idCol := entity.NewColumnVarChar(milvus.FieldID, ids)
	documentIDCol := entity.NewColumnVarChar(milvus.FieldDocumentID, documentIDs)
	textCol := entity.NewColumnVarChar(milvus.FieldChunkText, texts)
	positionCol := entity.NewColumnInt64(milvus.FieldPosition, positions)
	embeddingCol := entity.NewColumnFloatVector(milvus.FieldEmbedding, dim, embeddings)

	s.log.Info(fmt.Sprintf("Inserting %d chunks into Milvus collection %s", len(chunks), s.collection))
	_, err := s.client.Insert(ctx, s.collection, "", idCol, documentIDCol, textCol, positionCol, embeddingCol)
	if err != nil {
		return fmt.Errorf("failed to insert chunks into Milvus: %w", err)
	}
	return nil
}

// Query runs a vector search restricted to one document. The filter
// expression guarantees that chunks of other documents can never leak into
// the result.
func (s *MilvusStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]*schema.Chunk, error) {
	filterExpr := fmt.Sprintf(`%s == "%s"`, milvus.FieldDocumentID, documentID)
	outputFields := []string{milvus.FieldID, milvus.FieldDocumentID, milvus.FieldChunkText, milvus.FieldPosition}

	searchParams, err := entity.NewIndexIvfFlatSearchParam(s.nprobe)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	searchResults, err := s.client.Search(
		ctx, s.collection, []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(embedding)},
		milvus.FieldEmbedding, entity.L2, topK, searchParams,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []*schema.Chunk
	for _, res := range searchResults {
		findColumn := func(name string) entity.Column {
			for _, field := range res.Fields {
				if field.Name() == name {
					return field
				}
			}
			return nil
		}

		idCol, ok := findColumn(milvus.FieldID).(*entity.ColumnVarChar)
		if !ok {
			s.log.Warn("Search result is missing the id field, skipping result set")
			continue
		}
		idData := idCol.Data()

		var documentIDData, textData []string
		var positionData []int64
		if col, ok := findColumn(milvus.FieldDocumentID).(*entity.ColumnVarChar); ok {
			documentIDData = col.Data()
		}
		if col, ok := findColumn(milvus.FieldChunkText).(*entity.ColumnVarChar); ok {
			textData = col.Data()
		}
		if col, ok := findColumn(milvus.FieldPosition).(*entity.ColumnInt64); ok {
			positionData = col.Data()
		}

		for i := 0; i < res.ResultCount; i++ {
			chunk := &schema.Chunk{
				ID:    idData[i],
				Score: res.Scores[i],
			}
			if documentIDData != nil {
				chunk.DocumentID = documentIDData[i]
			}
			if textData != nil {
				chunk.Text = textData[i]
			}
			if positionData != nil {
				chunk.Position = int(positionData[i])
			}
			results = append(results, chunk)
		}
	}

	return results, nil
}

// DeleteByDocument removes all chunks of a document. Ingestion uses it to
// roll back vector writes when the metadata row cannot be created.
func (s *MilvusStore) DeleteByDocument(ctx context.Context, documentID string) error {
	expr := fmt.Sprintf(`%s == "%s"`, milvus.FieldDocumentID, documentID)
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("failed to delete chunks of document %s: %w", documentID, err)
	}
	return nil
}

var _ interfaces.VectorStore = (*MilvusStore)(nil)
