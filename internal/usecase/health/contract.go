package health

import (
	"context"

	"github.com/querydocs/querydocs/internal/domain"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker = domain.HealthChecker
