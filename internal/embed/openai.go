// Package embed provides the embedding client consumed by both
// ingestion and retrieval, backed by an OpenAI-compatible API.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
	"github.com/querydocs/querydocs/internal/metrics"
)

// Client is an embedding provider using the OpenAI-compatible API.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

var _ domain.Embedder = (*Client)(nil)

// NewClient creates an OpenAI-compatible embedding client.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

// Embed returns the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements domain.Embedder with transport-level metrics.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(c.model), "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(c.model), "short_response").Inc()
		return nil, fmt.Errorf("got %d embeddings for %d texts: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(c.model)).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(string(c.model), "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(string(c.model), "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	// The API reports each vector's position; order by it rather than
	// trusting response order.
	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range: %w",
				d.Index, domain.ErrEmbeddingProvider)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for input %d: %w",
				i, domain.ErrEmbeddingProvider)
		}
	}
	return vecs, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Model returns the configured embedding model identifier.
func (c *Client) Model() string { return string(c.model) }

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProvider so the
// worker classifies them as retryable.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
