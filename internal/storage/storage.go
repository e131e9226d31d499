// Package storage keeps a session's documents and segments in SQLite.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrNotFound is returned when a document or segment id is unknown.
var ErrNotFound = errors.New("not found")

// Storage defines document and segment records for one session. Records are only
// ever inserted.
type Storage interface {
	AddDocuments(ctx context.Context, docs []*models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)

	BatchCreateSegments(ctx context.Context, segs []*models.Segment) error
	GetSegment(ctx context.Context, id string) (*models.Segment, error)
	GetSegments(ctx context.Context, ids []string) ([]*models.Segment, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountSegments(ctx context.Context) (int64, error)

	Close() error
}
