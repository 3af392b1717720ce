// Package storage persists the document half of a vector index.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/kiku/internal/models"
)

// Meta describes a persisted index build.
type Meta struct {
	Dimensions int
	Metric     string
	Count      int
	BuildID    string
	CreatedAt  time.Time
}

// DocumentStore holds the documents of an index keyed by record id, plus build metadata.
type DocumentStore interface {
	// WriteDocuments stores docs with ids 0..len(docs)-1 in one transaction.
	WriteDocuments(ctx context.Context, docs []models.Document) error
	// ReadDocuments returns every stored document as a record (without vector) ordered by id.
	ReadDocuments(ctx context.Context) ([]models.VectorRecord, error)
	WriteMeta(ctx context.Context, meta Meta) error
	ReadMeta(ctx context.Context) (Meta, error)
	CountDocuments(ctx context.Context) (int64, error)
	Close() error
}
