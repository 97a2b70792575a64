package splitters

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/schema"
)

// WordSplitter splits page texts into chunks of at most ChunkSize runes,
// breaking at the last word boundary inside the window. Chunking is
// deterministic and windows never overlap, so no character range ever
// appears in two chunks.
type WordSplitter struct {
	ChunkSize int
}

// NewWordSplitter creates a WordSplitter with the given rune budget per chunk.
func NewWordSplitter(chunkSize int) *WordSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	return &WordSplitter{ChunkSize: chunkSize}
}

// Split chunks each page in order. Positions are continuous across pages.
func (s *WordSplitter) Split(ctx context.Context, documentID string, pages []string) ([]*schema.Chunk, error) {
	var chunks []*schema.Chunk
	position := 0

	for _, page := range pages {
		for _, text := range s.splitText(page) {
			chunks = append(chunks, &schema.Chunk{
				ID:         uuid.New().String(),
				DocumentID: documentID,
				Text:       text,
				Position:   position,
			})
			position++
		}
	}

	return chunks, nil
}

// splitText cuts one page into non-overlapping windows of at most ChunkSize
// runes, preferring to break at the last space inside the window.
func (s *WordSplitter) splitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Break at a word boundary when one exists inside the window.
			window := string(runes[start:end])
			if lastSpace := strings.LastIndexFunc(window, isSpace); lastSpace > 0 {
				end = start + len([]rune(window[:lastSpace]))
			}
		}

		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
		start = end
	}

	return parts
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

var _ interfaces.Splitter = (*WordSplitter)(nil)
