package loaders

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"docchat/internal/rag/interfaces"
)

// PdfExtractor extracts page-level text from PDF bytes.
type PdfExtractor struct{}

// NewPdfExtractor creates a new PdfExtractor.
func NewPdfExtractor() *PdfExtractor {
	return &PdfExtractor{}
}

// Extract parses the PDF and returns the plain text of each page in order.
// Corrupted or encrypted files fail here, before any state is written.
func (e *PdfExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	return pages, nil
}

var _ interfaces.Extractor = (*PdfExtractor)(nil)
