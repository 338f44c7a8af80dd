package db

import (
	"context"
	"time"
)

// Store is the Redis facade combining all sub-interfaces. Consumers
// depend on the narrow sub-interfaces, not on Store itself.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	StreamStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// KVStore provides simple key-value operations (embedding cache).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides KNN search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// StreamEntry is one delivered message from a Redis Stream.
type StreamEntry struct {
	ID     string
	Fields map[string]string
}

// StreamStore provides the Redis Streams operations backing the job queue.
type StreamStore interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	GroupCreate(ctx context.Context, stream, group string) error
	ReadGroup(
		ctx context.Context, stream, group, consumer string,
		count int, block time.Duration,
	) ([]StreamEntry, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	AutoClaim(
		ctx context.Context, stream, group, consumer string,
		minIdle time.Duration, count int,
	) ([]StreamEntry, error)
	StreamLen(ctx context.Context, stream string) (int64, error)
}

// KNNQuery describes a vector similarity query against an FT index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchEntry is one hit of an FT.SEARCH reply.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult is a parsed FT.SEARCH reply.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
