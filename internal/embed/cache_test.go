package embed

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/db"
)

// --- Mocks ---

type mockEmbedder struct {
	vec        []float32
	err        error
	batchCalls int
	gotTexts   []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	m.gotTexts = append([]string(nil), texts...)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = m.vec
	}
	return out, nil
}

type mockKVStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: make(map[string][]byte)}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func newCached(inner *mockEmbedder, s *mockKVStore) *Cached {
	return NewCached(inner, s, "test-model", "querydocs:", nil, zap.NewNop())
}

// --- Tests ---

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1, 2, 3}}
	s := newMockKVStore()
	c := newCached(inner, s)

	first, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.batchCalls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.batchCalls)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("unexpected vector lengths: %d, %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("component %d: cached vector differs, %v vs %v", i, first[i], second[i])
		}
	}
}

func TestEmbedBatch_PartialHits(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	s := newMockKVStore()
	c := newCached(inner, s)

	// Warm the cache for "a".
	if _, err := c.Embed(context.Background(), "a"); err != nil {
		t.Fatalf("warm: %v", err)
	}
	inner.batchCalls = 0

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 provider call for misses, got %d", inner.batchCalls)
	}
	if len(inner.gotTexts) != 2 || inner.gotTexts[0] != "b" || inner.gotTexts[1] != "c" {
		t.Errorf("expected only misses forwarded, got %v", inner.gotTexts)
	}
	for i, v := range vecs {
		if v == nil {
			t.Errorf("vector %d missing after merge", i)
		}
	}
}

func TestEmbedBatch_StoreFailureFallsThrough(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	s := newMockKVStore()
	s.getErr = errors.New("store down")
	s.setErr = errors.New("store down")
	c := newCached(inner, s)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("cache failure must not fail embedding: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
}

func TestEmbedBatch_ProviderErrorPropagates(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("rate limited")}
	c := newCached(inner, newMockKVStore())

	_, err := c.EmbedBatch(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected provider error")
	}
}

func TestCacheKey_IncludesModel(t *testing.T) {
	s := newMockKVStore()
	a := NewCached(&mockEmbedder{}, s, "model-a", "querydocs:", nil, zap.NewNop())
	b := NewCached(&mockEmbedder{}, s, "model-b", "querydocs:", nil, zap.NewNop())

	if a.cacheKey("text") == b.cacheKey("text") {
		t.Error("different models must not share cache entries")
	}
}
