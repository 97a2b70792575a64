package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docchat/internal/config"
)

// Field names of the chunk collection.
const (
	FieldID         = "id"
	FieldDocumentID = "document_id"
	FieldChunkText  = "chunk_text"
	FieldPosition   = "position"
	FieldEmbedding  = "embedding"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient bundles the raw Milvus client with its configuration.
type MilvusClient struct {
	Client client.Client
	Config *config.MilvusConfig
}

// GetClient connects to Milvus once per process and returns the shared client.
func GetClient(ctx context.Context, cfg *config.MilvusConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
		if err != nil {
			initErr = fmt.Errorf("cannot connect to Milvus: %w", err)
			return
		}
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// EnsureCollection creates the chunk collection and its index when they do
// not exist yet, and loads the collection into memory for querying.
func (c *MilvusClient) EnsureCollection(ctx context.Context) error {
	exists, err := c.Client.HasCollection(ctx, c.Config.CollectionName)
	if err != nil {
		return fmt.Errorf("cannot check collection existence: %w", err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(c.Config.CollectionName).
			WithDescription("document chunks with embeddings").
			WithField(entity.NewField().WithName(FieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(FieldDocumentID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(FieldChunkText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
			WithField(entity.NewField().WithName(FieldPosition).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(FieldEmbedding).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(c.Config.EmbeddingDim)))

		if err := c.Client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("cannot create collection '%s': %w", c.Config.CollectionName, err)
		}

		idx, err := entity.NewIndexIvfFlat(entity.L2, c.Config.IndexNlist)
		if err != nil {
			return fmt.Errorf("cannot build index definition: %w", err)
		}
		if err := c.Client.CreateIndex(ctx, c.Config.CollectionName, FieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("cannot create index on '%s': %w", FieldEmbedding, err)
		}
	}

	if err := c.Client.LoadCollection(ctx, c.Config.CollectionName, false); err != nil {
		return fmt.Errorf("cannot load collection '%s': %w", c.Config.CollectionName, err)
	}
	return nil
}

// HealthCheck verifies the connection by listing collections.
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client not initialized")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}

// Close shuts down the connection.
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
