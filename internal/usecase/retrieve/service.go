// Package retrieve embeds a query and finds its nearest indexed chunks.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
)

// Service is the query-time retriever.
type Service struct {
	embedder domain.Embedder
	index    Index
	defaultK int
	logger   *zap.Logger
}

// New creates the retriever. defaultK is used when a request does not
// specify how many chunks to return.
func New(embedder domain.Embedder, index Index, defaultK int, logger *zap.Logger) *Service {
	if defaultK < 1 {
		defaultK = 3
	}
	return &Service{embedder: embedder, index: index, defaultK: defaultK, logger: logger}
}

// Retrieve returns up to k chunks most similar to the query, best
// first. An empty index yields an empty slice, not an error.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrRetrievalFailed)
	}
	if k < 1 {
		k = s.defaultK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", err, domain.ErrRetrievalFailed)
	}

	chunks, err := s.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w: %w", err, domain.ErrRetrievalFailed)
	}
	if len(chunks) > k {
		chunks = chunks[:k]
	}

	s.logger.Debug("Retrieved chunks", zap.Int("k", k), zap.Int("found", len(chunks)))
	return chunks, nil
}
