package upload

import (
	"context"

	"github.com/querydocs/querydocs/internal/domain"
)

// Enqueuer hands an accepted file off to the ingestion queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job domain.UploadJob) (string, error)
}
