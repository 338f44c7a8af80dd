// Package chat answers user questions grounded in retrieved chunks.
package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
)

// Service wires retrieval and synthesis into one question-answering
// operation.
type Service struct {
	retriever Retriever
	synth     domain.Synthesizer
	logger    *zap.Logger
}

// New creates the chat service.
func New(retriever Retriever, synth domain.Synthesizer, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, synth: synth, logger: logger}
}

// Ask retrieves up to k relevant chunks and synthesizes an answer from
// them. The returned Answer carries the chunks it was grounded on so
// callers can show provenance.
func (s *Service) Ask(ctx context.Context, question string, k int) (domain.Answer, error) {
	chunks, err := s.retriever.Retrieve(ctx, question, k)
	if err != nil {
		return domain.Answer{}, err
	}

	text, err := s.synth.Synthesize(ctx, question, chunks)
	if err != nil {
		return domain.Answer{}, err
	}

	s.logger.Debug("Answered question", zap.Int("sources", len(chunks)))
	return domain.Answer{Text: text, Sources: chunks}, nil
}
