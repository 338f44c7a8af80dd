package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/db"
	"github.com/querydocs/querydocs/internal/domain"
)

// store is the consumer interface for the embedding cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Cached is a caching decorator around an Embedder. Re-ingesting the
// same document (at-least-once redelivery) hits the cache instead of
// the provider.
type Cached struct {
	inner      domain.Embedder
	store      store
	model      string
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

var _ domain.Embedder = (*Cached)(nil)

// NewCached creates a caching decorator. cacheTotal is a counter vec
// with label "result" ("hit"/"miss"), passed explicitly.
func NewCached(
	inner domain.Embedder,
	s store,
	model, keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cached {
	return &Cached{
		inner:      inner,
		store:      s,
		model:      model,
		keyPrefix:  keyPrefix + "emb_cache:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch serves cached vectors and embeds only the misses in a
// single provider call, preserving input order.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.getFromCache(ctx, c.cacheKey(text)); ok {
			c.incCache("hit")
			vecs[i] = vec
			continue
		}
		c.incCache("miss")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vecs, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	for j, vec := range fresh {
		vecs[missIdx[j]] = vec
		c.putToCache(ctx, c.cacheKey(missTexts[j]), vec)
	}
	return vecs, nil
}

func (c *Cached) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey includes the model so switching models never serves stale vectors.
func (c *Cached) cacheKey(text string) string {
	h := sha256.Sum256([]byte(c.model + "\x00" + text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *Cached) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, false
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true
}

func (c *Cached) putToCache(ctx context.Context, key string, vec []float32) {
	data := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}
