package domain

import "context"

// Embedder maps text to fixed-dimension vectors. EmbedBatch returns
// one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker is implemented by components that can verify their
// upstream availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Synthesizer produces a natural-language answer grounded in the
// retrieved context chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []ScoredChunk) (string, error)
}
