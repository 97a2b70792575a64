package dal

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"docchat/internal/models"
	"docchat/internal/rag/interfaces"
)

// ErrDocumentNotFound is returned when a document id has no metadata row.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentDAL provides data access methods for document metadata.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// AutoMigrate creates or updates the documents table.
func (dal *DocumentDAL) AutoMigrate() error {
	return dal.db.AutoMigrate(&models.Document{})
}

// Create inserts the metadata row for a newly ingested document.
func (dal *DocumentDAL) Create(ctx context.Context, doc *models.Document) error {
	if result := dal.db.WithContext(ctx).Create(doc); result.Error != nil {
		return fmt.Errorf("failed to create document row: %w", result.Error)
	}
	return nil
}

// Get fetches one document by id, mapping a missing row to
// ErrDocumentNotFound.
func (dal *DocumentDAL) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	result := dal.db.WithContext(ctx).First(&doc, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to fetch document %s: %w", id, result.Error)
	}
	return &doc, nil
}

// List returns all documents ordered by upload time ascending.
func (dal *DocumentDAL) List(ctx context.Context) ([]*models.Document, error) {
	var docs []*models.Document
	result := dal.db.WithContext(ctx).Order("upload_date asc").Find(&docs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %w", result.Error)
	}
	return docs, nil
}

// Delete removes the metadata row of a document.
func (dal *DocumentDAL) Delete(ctx context.Context, id string) error {
	result := dal.db.WithContext(ctx).Delete(&models.Document{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

var _ interfaces.DocumentRepository = (*DocumentDAL)(nil)
