package chat

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
)

// --- Mocks ---

type mockRetriever struct {
	chunks []domain.ScoredChunk
	err    error
	gotQ   string
	gotK   int
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	m.gotQ = query
	m.gotK = k
	return m.chunks, m.err
}

type mockSynth struct {
	answer    string
	err       error
	gotChunks []domain.ScoredChunk
}

func (m *mockSynth) Synthesize(_ context.Context, _ string, chunks []domain.ScoredChunk) (string, error) {
	m.gotChunks = chunks
	return m.answer, m.err
}

// --- Tests ---

func TestAsk_Success(t *testing.T) {
	chunks := []domain.ScoredChunk{
		{Chunk: domain.Chunk{Text: "relevant", SourceFile: "doc.pdf", Page: 1}, Score: 0.9},
	}
	r := &mockRetriever{chunks: chunks}
	s := &mockSynth{answer: "the answer"}

	got, err := New(r, s, zap.NewNop()).Ask(context.Background(), "a question", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "the answer" {
		t.Errorf("expected answer text, got %q", got.Text)
	}
	if len(got.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(got.Sources))
	}
	if r.gotQ != "a question" || r.gotK != 2 {
		t.Errorf("retriever got (%q, %d)", r.gotQ, r.gotK)
	}
	if len(s.gotChunks) != 1 {
		t.Errorf("synthesizer must receive the retrieved chunks")
	}
}

func TestAsk_NoChunksStillSynthesizes(t *testing.T) {
	// An empty index is not an error: the synthesizer is expected to
	// acknowledge missing context instead of inventing an answer.
	s := &mockSynth{answer: "I don't have that information."}

	got, err := New(&mockRetriever{}, s, zap.NewNop()).Ask(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(got.Sources))
	}
}

func TestAsk_RetrieverErrorPropagates(t *testing.T) {
	r := &mockRetriever{err: domain.ErrRetrievalFailed}

	_, err := New(r, &mockSynth{}, zap.NewNop()).Ask(context.Background(), "q", 2)
	if !errors.Is(err, domain.ErrRetrievalFailed) {
		t.Fatalf("expected ErrRetrievalFailed, got %v", err)
	}
}

func TestAsk_SynthErrorPropagates(t *testing.T) {
	s := &mockSynth{err: domain.ErrSynthesisFailed}

	_, err := New(&mockRetriever{}, s, zap.NewNop()).Ask(context.Background(), "q", 2)
	if !errors.Is(err, domain.ErrSynthesisFailed) {
		t.Fatalf("expected ErrSynthesisFailed, got %v", err)
	}
}
