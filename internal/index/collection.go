// Package index is the vector collection repository: chunk records
// stored as Redis hashes behind an FT vector index, queried via KNN.
package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/querydocs/querydocs/internal/db"
	"github.com/querydocs/querydocs/internal/domain"
)

// Hash field names of one indexed chunk record.
const (
	fieldContent  = "content"
	fieldSource   = "source_file"
	fieldPage     = "page"
	fieldSequence = "sequence_index"
	fieldJobID    = "job_id"
	fieldVector   = "vector"
)

// store is the consumer interface for collection operations.
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig tunes the vector index build parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Collection owns one named vector collection.
type Collection struct {
	store     store
	name      string
	keyPrefix string
	dim       int
	hnsw      HNSWConfig
}

// New creates a collection repository. dim is the embedder's fixed
// output dimension; every upserted vector must match it.
func New(s store, name, keyPrefix string, dim int) *Collection {
	return &Collection{store: s, name: name, keyPrefix: keyPrefix, dim: dim}
}

// WithHNSW overrides HNSW build parameters.
func (c *Collection) WithHNSW(cfg HNSWConfig) *Collection {
	c.hnsw = cfg
	return c
}

func (c *Collection) indexName() string {
	return c.keyPrefix + c.name + ":idx"
}

func (c *Collection) recordKey(id string) string {
	return c.keyPrefix + c.name + ":" + id
}

// Ensure creates the FT index if it does not exist yet.
func (c *Collection) Ensure(ctx context.Context) error {
	exists, err := c.store.IndexExists(ctx, c.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w: %w", err, domain.ErrIndexUnavailable)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     c.indexName(),
		Prefixes: []string{c.keyPrefix + c.name + ":"},
		Fields: []db.IndexField{
			{Name: fieldContent, Type: db.IndexFieldText},
			{Name: fieldSource, Type: db.IndexFieldTag},
			{Name: fieldJobID, Type: db.IndexFieldTag},
			{Name: fieldPage, Type: db.IndexFieldNumeric},
			{Name: fieldSequence, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         c.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           c.hnsw.M,
				VectorEFConstruct: c.hnsw.EFConstruct,
			},
		},
	}
	if err := c.store.CreateIndex(ctx, def); err != nil && err != db.ErrIndexExists {
		return fmt.Errorf("create index: %w: %w", err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Upsert writes all records in one pipelined round-trip. Records keep
// their deterministic ids, so redelivered jobs overwrite rather than
// duplicate.
func (c *Collection) Upsert(ctx context.Context, records []domain.IndexedRecord) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		if len(rec.Vector) != c.dim {
			return fmt.Errorf("record %s has dim %d, collection wants %d: %w",
				rec.ID, len(rec.Vector), c.dim, domain.ErrVectorDimMismatch)
		}
		items[i] = db.HashSetItem{
			Key: c.recordKey(rec.ID),
			Fields: map[string]string{
				fieldContent:  rec.Chunk.Text,
				fieldSource:   rec.Chunk.SourceFile,
				fieldPage:     strconv.Itoa(rec.Chunk.Page),
				fieldSequence: strconv.Itoa(rec.Chunk.SequenceIndex),
				fieldJobID:    rec.JobID,
				fieldVector:   vectorToBytes(rec.Vector),
			},
		}
	}

	if err := c.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records: %w: %w", len(records), err, domain.ErrIndexUnavailable)
	}
	return nil
}

// Query returns the k nearest chunks, most similar first, preserving
// the index ranking.
func (c *Collection) Query(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	if len(vector) != c.dim {
		return nil, fmt.Errorf("query vector has dim %d, collection wants %d: %w",
			len(vector), c.dim, domain.ErrVectorDimMismatch)
	}

	sr, err := c.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    c.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldContent, fieldSource, fieldPage, fieldSequence},
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w: %w", err, domain.ErrIndexUnavailable)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.ScoredChunk, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		results = append(results, domain.ScoredChunk{
			Chunk: chunkFromFields(entry.Fields),
			Score: entry.Score,
		})
	}
	return results, nil
}

// DeleteByIDs removes records written by a failed run (tag-and-delete
// reconciliation; best effort).
func (c *Collection) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.recordKey(id)
	}
	if err := c.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete %d records: %w: %w", len(ids), err, domain.ErrIndexUnavailable)
	}
	return nil
}

// vectorToBytes serializes a vector to the FLOAT32 little-endian blob
// format the FT vector field expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

func chunkFromFields(fields map[string]string) domain.Chunk {
	chunk := domain.Chunk{
		Text:       fields[fieldContent],
		SourceFile: strings.TrimSpace(fields[fieldSource]),
	}
	if v, err := strconv.Atoi(fields[fieldPage]); err == nil {
		chunk.Page = v
	}
	if v, err := strconv.Atoi(fields[fieldSequence]); err == nil {
		chunk.SequenceIndex = v
	}
	return chunk
}
