// Package synth turns a question plus retrieved context into a
// grounded natural-language answer via an OpenAI-compatible chat API.
package synth

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
)

const systemPrompt = "You are a helpful assistant answering questions based on provided documents. " +
	"Answer the question based ONLY on the information provided in the context documents. " +
	"If the context doesn't contain relevant information to answer the question, " +
	"acknowledge that and don't make up information. " +
	"Provide a clear, concise answer with specific details from the documents."

// Client is an answer synthesizer over chat completions.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the generative model settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

var _ domain.Synthesizer = (*Client)(nil)

// NewClient creates a chat-completion synthesizer.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Synthesize answers the question strictly from the supplied chunks.
func (c *Client) Synthesize(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error) {
	user := fmt.Sprintf(
		"Context documents from the knowledge base:\n%s\n\nUser question: %s",
		BuildContext(chunks), question,
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w: %w", err, domain.ErrSynthesisFailed)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrSynthesisFailed)
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildContext labels each retrieved chunk with an ordinal and its
// provenance so the answer can be traced back to a source.
func BuildContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, sc := range chunks {
		header := fmt.Sprintf("Document %d (%s", i+1, sc.Chunk.SourceFile)
		if sc.Chunk.Page > 0 {
			header += fmt.Sprintf(", page %d", sc.Chunk.Page)
		}
		header += ")"
		parts = append(parts, header+":\n"+sc.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}
