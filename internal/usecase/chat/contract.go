package chat

import (
	"context"

	"github.com/querydocs/querydocs/internal/domain"
)

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
