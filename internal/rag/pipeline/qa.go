package pipeline

import (
	"context"
	"fmt"
	"strings"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/schema"
	"docchat/pkg/logger"
)

// QAPipeline builds a prompt from retrieved chunks and asks the LLM.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{llm: llm, log: log}
}

// Run generates an answer for the question from the given chunks. The answer
// is returned verbatim apart from whitespace trimming.
func (p *QAPipeline) Run(ctx context.Context, question string, chunks []*schema.Chunk) (string, error) {
	prompt := p.buildPrompt(question, chunks)

	p.log.Info(fmt.Sprintf("Sending prompt with %d context chunks to LLM", len(chunks)))
	answer, err := p.llm.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}

	return strings.TrimSpace(answer), nil
}

// buildPrompt assembles the fixed instruction template, the chunk texts and
// the question.
func (p *QAPipeline) buildPrompt(question string, chunks []*schema.Chunk) string {
	var sb strings.Builder

	sb.WriteString("Based on the following context, please answer the question.\n\nContext:\n")
	for i, chunk := range chunks {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, chunk.Text))
	}
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("Question: %s", question))

	return sb.String()
}
