package llms

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/retry"
)

// OpenAILLM generates answers through the OpenAI chat completions API.
type OpenAILLM struct {
	client     *openai.Client
	model      string
	maxRetries int
	timeout    time.Duration
}

// NewOpenAILLM creates an LLM client for the given model. baseURL may be
// empty to use the default endpoint.
func NewOpenAILLM(apiKey, baseURL, model string, maxRetries int, timeout time.Duration) *OpenAILLM {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAILLM{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

// Generate sends the prompt as a single user message and returns the model's
// reply. Each attempt is timeout-bound; the retry budget is finite.
func (o *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	var resp openai.ChatCompletionResponse
	err := retry.Do(ctx, o.maxRetries, o.timeout, func(ctx context.Context) error {
		var callErr error
		resp, callErr = o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: o.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		return callErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

var _ interfaces.LLM = (*OpenAILLM)(nil)
