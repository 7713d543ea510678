// Package storage defines the document store used as the source of indexing runs.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/lens/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Storage defines document persistence operations. ListDocuments pages in insertion
// order, so an indexing run that pages through the store sees a stable sequence.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpsertDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	CountDocuments(ctx context.Context) (int64, error)
	Close() error
}
