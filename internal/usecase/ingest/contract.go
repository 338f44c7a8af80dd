package ingest

import (
	"context"

	"github.com/querydocs/querydocs/internal/domain"
)

// Loader parses a source file into ordered text segments.
type Loader interface {
	Load(path string) ([]domain.RawSegment, error)
}

// Index persists embedded chunks and supports failed-run cleanup.
type Index interface {
	Upsert(ctx context.Context, records []domain.IndexedRecord) error
	DeleteByIDs(ctx context.Context, ids []string) error
}
