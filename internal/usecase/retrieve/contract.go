package retrieve

import (
	"context"

	"github.com/querydocs/querydocs/internal/domain"
)

// Index answers nearest-neighbor queries over indexed chunks.
type Index interface {
	Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)
}
