package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"docchat/internal/docchat/dal"
	"docchat/internal/models"
	"docchat/internal/rag/pipeline"
	"docchat/internal/rag/schema"
	"docchat/internal/rag/splitters"
	"docchat/pkg/logger"
)

var pdfBytes = []byte("%PDF-1.4\nfake body for tests\n%%EOF")

type fakeRepo struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{docs: make(map[string]*models.Document)}
}

func (r *fakeRepo) Create(ctx context.Context, doc *models.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, dal.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []*models.Document
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadDate.Before(docs[j].UploadDate) })
	return docs, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return dal.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

type fakeFileStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (f *fakeFileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = data
	return name, nil
}

func (f *fakeFileStore) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	return nil
}

type fakeVectorStore struct {
	mu     sync.Mutex
	chunks []*schema.Chunk
	addErr error
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
	var kept []*schema.Chunk
	for _, c := range f.chunks {
		if c.DocumentID != documentID {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return nil
}

func (f *fakeVectorStore) count(documentID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n
}

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
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeLLM struct {
	answer string
	err    error
	calls  int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{entries: make(map[string]string)} }

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	answer, ok := c.entries[key]
	return answer, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = answer
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []*models.IngestionEvent
}

func (e *fakeEvents) PublishIngested(ctx context.Context, event *models.IngestionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

type deps struct {
	repo    *fakeRepo
	files   *fakeFileStore
	vectors *fakeVectorStore
	ex      *fakeExtractor
	em      *fakeEmbedder
	llm     *fakeLLM
	cache   *fakeCache
	events  *fakeEvents
}

func newService(d *deps) *Service {
	log := logger.New("test")
	indexing := pipeline.NewIndexingPipeline(d.ex, splitters.NewWordSplitter(100), d.em, d.vectors, log)
	retrieval := pipeline.NewRetrievalPipeline(d.em, d.vectors, log)
	qa := pipeline.NewQAPipeline(d.llm, log)
	return New(log, d.repo, d.files, d.vectors, indexing, retrieval, qa, d.cache, d.events, 4, time.Minute)
}

func defaultDeps() *deps {
	return &deps{
		repo:    newFakeRepo(),
		files:   newFakeFileStore(),
		vectors: &fakeVectorStore{},
		ex:      &fakeExtractor{pages: []string{"The capital of France is Paris."}},
		em:      &fakeEmbedder{},
		llm:     &fakeLLM{answer: "Paris."},
		cache:   newFakeCache(),
		events:  &fakeEvents{},
	}
}

func TestIngest_RejectsNonPDFFilename(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	_, err := s.Ingest(context.Background(), pdfBytes, "notes.txt")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Ingest() error = %v, want ErrInvalidInput", err)
	}
	if len(d.repo.docs) != 0 {
		t.Error("metadata row created for rejected upload")
	}
	if len(d.files.files) != 0 {
		t.Error("file stored for rejected upload")
	}
}

func TestIngest_RejectsNonPDFContent(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	_, err := s.Ingest(context.Background(), []byte("plain text pretending"), "notes.pdf")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Ingest() error = %v, want ErrInvalidInput", err)
	}
}

func TestIngest_Success(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	doc, err := s.Ingest(context.Background(), pdfBytes, "sample.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if doc.ID == "" || doc.OriginalFilename != "sample.pdf" {
		t.Errorf("unexpected document: %+v", doc)
	}
	if !strings.Contains(doc.Filename, doc.ID) {
		t.Errorf("stored filename %q is not disambiguated by the document id", doc.Filename)
	}
	if _, ok := d.repo.docs[doc.ID]; !ok {
		t.Error("metadata row missing after ingestion")
	}
	if d.vectors.count(doc.ID) == 0 {
		t.Error("no chunks indexed for the document")
	}
	if len(d.events.events) != 1 || d.events.events[0].DocumentID != doc.ID {
		t.Errorf("ingestion event not published: %+v", d.events.events)
	}
}

func TestIngest_ExtractionFailureLeavesNoState(t *testing.T) {
	d := defaultDeps()
	d.ex.err = errors.New("corrupted PDF")
	s := newService(d)

	if _, err := s.Ingest(context.Background(), pdfBytes, "broken.pdf"); err == nil {
		t.Fatal("expected ingestion failure")
	}
	if len(d.repo.docs) != 0 {
		t.Error("metadata row exists after failed ingestion")
	}
	if len(d.vectors.chunks) != 0 {
		t.Error("orphaned chunks exist after failed ingestion")
	}
	if len(d.files.files) != 0 {
		t.Error("stored file remains after failed ingestion")
	}
}

func TestIngest_MetadataFailureRollsBackChunks(t *testing.T) {
	d := defaultDeps()
	d.repo.createErr = errors.New("mysql down")
	s := newService(d)

	if _, err := s.Ingest(context.Background(), pdfBytes, "sample.pdf"); err == nil {
		t.Fatal("expected ingestion failure")
	}
	if len(d.vectors.chunks) != 0 {
		t.Error("orphaned chunks exist after metadata failure")
	}
	if len(d.files.files) != 0 {
		t.Error("stored file remains after metadata failure")
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	_, err := s.Ask(context.Background(), "any", "   ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Ask() error = %v, want ErrInvalidInput", err)
	}
	if d.llm.calls != 0 {
		t.Error("LLM called for empty question")
	}
}

func TestAsk_UnknownDocumentSkipsLLM(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	_, err := s.Ask(context.Background(), "missing-id", "What is the capital of France?")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Ask() error = %v, want ErrNotFound", err)
	}
	if d.em.calls != 0 {
		t.Error("embedder called for unknown document")
	}
	if d.llm.calls != 0 {
		t.Error("LLM called for unknown document")
	}
}

func TestAsk_AnswersFromIngestedDocument(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	doc, err := s.Ingest(context.Background(), pdfBytes, "sample.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	answer, err := s.Ask(context.Background(), doc.ID, "What is the capital of France?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !strings.Contains(answer, "Paris") {
		t.Errorf("answer %q does not contain Paris", answer)
	}
}

func TestAsk_CachedAnswerSkipsBackends(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	doc, err := s.Ingest(context.Background(), pdfBytes, "sample.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	if _, err := s.Ask(context.Background(), doc.ID, "What is the capital of France?"); err != nil {
		t.Fatalf("first Ask() error = %v", err)
	}
	llmCallsAfterFirst := d.llm.calls
	embedCallsAfterFirst := d.em.calls

	answer, err := s.Ask(context.Background(), doc.ID, "What is the capital of France?")
	if err != nil {
		t.Fatalf("second Ask() error = %v", err)
	}
	if answer != "Paris." {
		t.Errorf("cached answer mismatch: %q", answer)
	}
	if d.llm.calls != llmCallsAfterFirst || d.em.calls != embedCallsAfterFirst {
		t.Error("backends called again despite cache hit")
	}
}

func TestAsk_LLMFailureIsUnavailable(t *testing.T) {
	d := defaultDeps()
	d.llm.err = errors.New("upstream timeout")
	s := newService(d)

	doc, err := s.Ingest(context.Background(), pdfBytes, "sample.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	_, err = s.Ask(context.Background(), doc.ID, "anything?")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ask() error = %v, want ErrUnavailable", err)
	}
}

func TestAsk_ScopingAcrossSimilarDocuments(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	first, err := s.Ingest(context.Background(), pdfBytes, "first.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	second, err := s.Ingest(context.Background(), pdfBytes, "second.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	chunks, err := d.vectors.Query(context.Background(), []float32{1, 2, 3}, 100, first.ID)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	for _, c := range chunks {
		if c.DocumentID == second.ID {
			t.Fatal("retrieval for the first document leaked chunks of the second")
		}
	}
}

func TestListDocuments_IsOrderedAndIdempotent(t *testing.T) {
	d := defaultDeps()
	s := newService(d)

	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if _, err := s.Ingest(context.Background(), pdfBytes, name); err != nil {
			t.Fatalf("Ingest(%s) error = %v", name, err)
		}
		time.Sleep(2 * time.Millisecond) // distinct upload timestamps
	}

	first, err := s.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i].UploadDate.Before(first[i-1].UploadDate) {
			t.Error("documents not ordered by upload time ascending")
		}
	}

	second, err := s.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(second) != len(first) {
		t.Fatal("list not idempotent without intervening writes")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Error("list order changed between identical reads")
		}
	}
}
