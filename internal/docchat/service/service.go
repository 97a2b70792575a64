package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"docchat/internal/docchat/dal"
	"docchat/internal/models"
	"docchat/internal/rag/interfaces"
	"docchat/internal/rag/pipeline"
	"docchat/pkg/logger"
)

// Service orchestrates document ingestion and question answering. All
// collaborators are injected at construction time; the cache and the event
// publisher may be nil.
type Service struct {
	log       *logger.Logger
	repo      interfaces.DocumentRepository
	files     interfaces.FileStore
	vectors   interfaces.VectorStore
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	cache     interfaces.AnswerCache
	events    interfaces.EventPublisher
	topK      int
	cacheTTL  time.Duration
}

// New creates the service.
func New(
	log *logger.Logger,
	repo interfaces.DocumentRepository,
	files interfaces.FileStore,
	vectors interfaces.VectorStore,
	indexing *pipeline.IndexingPipeline,
	retrieval *pipeline.RetrievalPipeline,
	qa *pipeline.QAPipeline,
	cache interfaces.AnswerCache,
	events interfaces.EventPublisher,
	topK int,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		log:       log,
		repo:      repo,
		files:     files,
		vectors:   vectors,
		indexing:  indexing,
		retrieval: retrieval,
		qa:        qa,
		cache:     cache,
		events:    events,
		topK:      topK,
		cacheTTL:  cacheTTL,
	}
}

// Ingest validates, stores and indexes one uploaded PDF, then registers its
// metadata row. From the caller's perspective the operation is atomic: on
// any failure the stored file and any indexed chunks are removed again, so
// either the row and its chunks both exist or neither does.
func (s *Service) Ingest(ctx context.Context, data []byte, originalFilename string) (*models.Document, error) {
	base := filepath.Base(originalFilename)
	if strings.ToLower(filepath.Ext(base)) != ".pdf" {
		return nil, fmt.Errorf("%w: only PDF files are supported", ErrInvalidInput)
	}
	if !mimetype.Detect(data).Is("application/pdf") {
		return nil, fmt.Errorf("%w: file content is not a PDF", ErrInvalidInput)
	}

	documentID := uuid.New().String()
	storedName := fmt.Sprintf("%s_%s", documentID, base)

	path, err := s.files.Save(ctx, storedName, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	chunkCount, err := s.indexing.Run(ctx, documentID, data)
	if err != nil {
		s.removeFile(ctx, path)
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	doc := &models.Document{
		ID:               documentID,
		Filename:         storedName,
		OriginalFilename: base,
		UploadDate:       time.Now().UTC(),
		FilePath:         path,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		// The chunks are in the vector store already; take them out again
		// so no orphaned state survives the failed registration.
		if cleanupErr := s.vectors.DeleteByDocument(ctx, documentID); cleanupErr != nil {
			s.log.WithErr(cleanupErr).Error(fmt.Sprintf("Failed to remove chunks of document %s after metadata failure", documentID))
		}
		s.removeFile(ctx, path)
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	s.log.WithPayload(map[string]interface{}{
		"document_id": documentID,
		"chunks":      chunkCount,
	}).Info("Document ingested")

	if s.events != nil {
		event := &models.IngestionEvent{
			Type:       models.EventDocumentIngested,
			DocumentID: documentID,
			Filename:   base,
			ChunkCount: chunkCount,
			OccurredAt: doc.UploadDate,
		}
		if err := s.events.PublishIngested(ctx, event); err != nil {
			s.log.WithErr(err).Warn("Failed to publish ingestion event")
		}
	}

	return doc, nil
}

// Ask answers a question about one document. The document must exist before
// any embedding or generation call is made.
func (s *Service) Ask(ctx context.Context, documentID, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question must not be empty", ErrInvalidInput)
	}

	if _, err := s.repo.Get(ctx, documentID); err != nil {
		if errors.Is(err, dal.ErrDocumentNotFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, documentID)
		}
		return "", fmt.Errorf("failed to look up document: %w", err)
	}

	cacheKey := answerCacheKey(documentID, question)
	if s.cache != nil && s.cacheTTL > 0 {
		if answer, found, err := s.cache.Get(ctx, cacheKey); err != nil {
			s.log.WithErr(err).Warn("Answer cache lookup failed")
		} else if found {
			return answer, nil
		}
	}

	chunks, err := s.retrieval.Run(ctx, question, documentID, s.topK)
	if err != nil {
		s.log.WithErr(err).Error("Retrieval failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	answer, err := s.qa.Run(ctx, question, chunks)
	if err != nil {
		s.log.WithErr(err).Error("Answer generation failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, cacheKey, answer, s.cacheTTL); err != nil {
			s.log.WithErr(err).Warn("Answer cache write failed")
		}
	}

	return answer, nil
}

// ListDocuments returns all documents ordered by upload time ascending.
func (s *Service) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func (s *Service) removeFile(ctx context.Context, path string) {
	if err := s.files.Remove(ctx, path); err != nil {
		s.log.WithErr(err).Error(fmt.Sprintf("Failed to remove stored file %s", path))
	}
}

func answerCacheKey(documentID, question string) string {
	sum := sha256.Sum256([]byte(documentID + "\x00" + question))
	return "answer:" + hex.EncodeToString(sum[:])
}
