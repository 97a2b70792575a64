package embeddings

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/retry"
)

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API.
// The same instance is used at ingestion and at question time, so all
// vectors live in one embedding space.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

// NewOpenAIEmbedder creates an embedder for the given model. baseURL may be
// empty to use the default endpoint.
func NewOpenAIEmbedder(apiKey, baseURL, model string, maxRetries int, timeout time.Duration) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

// Embed generates embeddings for a batch of texts. The call is read-only, so
// it is retried within the configured budget.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	err := retry.Do(ctx, e.maxRetries, e.timeout, func(ctx context.Context) error {
		var callErr error
		resp, callErr = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(e.model),
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

var _ interfaces.Embedder = (*OpenAIEmbedder)(nil)
