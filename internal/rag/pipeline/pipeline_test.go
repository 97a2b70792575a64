package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docchat/internal/rag/schema"
	"docchat/internal/rag/splitters"
	"docchat/pkg/logger"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) ([]string, error) {
	return f.pages, f.err
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeVectorStore struct {
	mu      sync.Mutex
	chunks  []*schema.Chunk
	addErr  error
	deleted []string
}

func (f *fakeVectorStore) Add(ctx context.Context, chunks []*schema.Chunk) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeVectorStore) Query(ctx context.Context, embedding []float32, topK int, documentID string) ([]*schema.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*schema.Chunk
	for _, c := range f.chunks {
		if c.DocumentID == documentID && len(out) < topK {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeVectorStore) DeleteByDocument(ctx context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, documentID)
	var kept []*schema.Chunk
	for _, c := range f.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

type fakeLLM struct {
	answer string
	err    error
	prompt string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func newIndexingPipeline(ex *fakeExtractor, store *fakeVectorStore, em *fakeEmbedder) *IndexingPipeline {
	return NewIndexingPipeline(ex, splitters.NewWordSplitter(50), em, store, logger.New("test"))
}

func TestIndexingPipeline_Run(t *testing.T) {
	ex := &fakeExtractor{pages: []string{"The capital of France is Paris.", "Paris is on the Seine."}}
	store := &fakeVectorStore{}
	em := &fakeEmbedder{}

	count, err := newIndexingPipeline(ex, store, em).Run(context.Background(), "doc-1", []byte("pdf"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if count == 0 || count != len(store.chunks) {
		t.Fatalf("reported %d chunks, store has %d", count, len(store.chunks))
	}
	for _, c := range store.chunks {
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk tagged with wrong document id: %q", c.DocumentID)
		}
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %s stored without embedding", c.ID)
		}
	}
}

func TestIndexingPipeline_ExtractionFailureWritesNothing(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("encrypted PDF")}
	store := &fakeVectorStore{}
	em := &fakeEmbedder{}

	if _, err := newIndexingPipeline(ex, store, em).Run(context.Background(), "doc-1", []byte("pdf")); err == nil {
		t.Fatal("expected extraction error")
	}
	if em.calls != 0 {
		t.Errorf("embedder called %d times despite extraction failure", em.calls)
	}
	if len(store.chunks) != 0 {
		t.Errorf("%d chunks written despite extraction failure", len(store.chunks))
	}
}

func TestIndexingPipeline_InsertFailureRollsBack(t *testing.T) {
	ex := &fakeExtractor{pages: []string{"some text to index"}}
	store := &fakeVectorStore{addErr: errors.New("milvus down")}
	em := &fakeEmbedder{}

	if _, err := newIndexingPipeline(ex, store, em).Run(context.Background(), "doc-1", []byte("pdf")); err == nil {
		t.Fatal("expected insert error")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "doc-1" {
		t.Errorf("expected compensating delete for doc-1, got %v", store.deleted)
	}
}

func TestIndexingPipeline_EmptyDocumentRejected(t *testing.T) {
	ex := &fakeExtractor{pages: []string{"", "   "}}
	store := &fakeVectorStore{}
	em := &fakeEmbedder{}

	if _, err := newIndexingPipeline(ex, store, em).Run(context.Background(), "doc-1", []byte("pdf")); err == nil {
		t.Fatal("expected error for document without extractable text")
	}
	if len(store.chunks) != 0 {
		t.Errorf("%d chunks written for empty document", len(store.chunks))
	}
}

func TestRetrievalPipeline_ScopesToDocument(t *testing.T) {
	store := &fakeVectorStore{chunks: []*schema.Chunk{
		{ID: "a", DocumentID: "doc-1", Text: "chunk of doc one"},
		{ID: "b", DocumentID: "doc-2", Text: "chunk of doc two"},
		{ID: "c", DocumentID: "doc-1", Text: "another chunk of doc one"},
	}}
	p := NewRetrievalPipeline(&fakeEmbedder{}, store, logger.New("test"))

	chunks, err := p.Run(context.Background(), "what is in doc one?", "doc-1", 10)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.DocumentID != "doc-1" {
			t.Errorf("retrieval leaked chunk of document %q", c.DocumentID)
		}
	}
}

func TestQAPipeline_BuildsPromptAndTrims(t *testing.T) {
	llm := &fakeLLM{answer: "  Paris.\n"}
	p := NewQAPipeline(llm, logger.New("test"))

	chunks := []*schema.Chunk{{Text: "The capital of France is Paris."}}
	answer, err := p.Run(context.Background(), "What is the capital of France?", chunks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if answer != "Paris." {
		t.Errorf("answer not trimmed verbatim: %q", answer)
	}
	if !strings.Contains(llm.prompt, "The capital of France is Paris.") {
		t.Error("prompt is missing the retrieved chunk text")
	}
	if !strings.Contains(llm.prompt, "What is the capital of France?") {
		t.Error("prompt is missing the question")
	}
	if !strings.Contains(llm.prompt, "Based on the following context") {
		t.Error("prompt is missing the instruction template")
	}
}

func TestQAPipeline_PropagatesLLMFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("timeout")}
	p := NewQAPipeline(llm, logger.New("test"))

	if _, err := p.Run(context.Background(), "q", nil); err == nil {
		t.Fatal("expected error from LLM failure")
	}
}
