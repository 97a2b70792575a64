package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docchat/internal/docchat/service"
	"docchat/internal/models"
	"docchat/pkg/logger"
)

// DocChatService is the surface of the orchestrator the handlers need.
type DocChatService interface {
	Ingest(ctx context.Context, data []byte, originalFilename string) (*models.Document, error)
	Ask(ctx context.Context, documentID, question string) (string, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
}

// HealthCheck probes one backing dependency.
type HealthCheck func(ctx context.Context) error

// Handler holds the HTTP endpoint implementations.
type Handler struct {
	service DocChatService
	log     *logger.Logger
	health  map[string]HealthCheck
}

// NewHandler creates a Handler. health maps dependency names to their probes
// and may be empty.
func NewHandler(s DocChatService, log *logger.Logger, health map[string]HealthCheck) *Handler {
	return &Handler{service: s, log: log, health: health}
}

// AskRequest is the JSON body of POST /ask/:document_id.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Upload handles PDF uploads.
func (h *Handler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'file' form field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	doc, err := h.service.Ingest(c.Request.Context(), data, header.Filename)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     fmt.Sprintf("Successfully uploaded %s", doc.OriginalFilename),
		"document_id": doc.ID,
	})
}

// Ask handles questions about one document.
func (h *Handler) Ask(c *gin.Context) {
	documentID := c.Param("document_id")

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := h.service.Ask(c.Request.Context(), documentID, req.Question)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

// ListDocuments returns all documents ordered by upload time ascending.
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	c.JSON(http.StatusOK, docs)
}

// Healthz probes the backing dependencies.
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	result := make(gin.H, len(h.health))
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			h.log.WithErr(err).Warn(fmt.Sprintf("Health check failed: %s", name))
			result[name] = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			result[name] = "ok"
		}
	}
	c.JSON(status, result)
}

// writeError maps the service error taxonomy to HTTP status codes. Input
// errors are surfaced verbatim; dependency failures are logged and replaced
// with a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
	case errors.Is(err, service.ErrUnavailable):
		h.log.WithErr(err).Error("Generation backend unavailable")
		c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrUnavailable.Error()})
	default:
		h.log.WithErr(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
