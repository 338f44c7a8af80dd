// Package ingest drives one upload job through the pipeline:
// load -> chunk -> embed -> index.
package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/chunker"
	"github.com/querydocs/querydocs/internal/domain"
	"github.com/querydocs/querydocs/internal/metrics"
)

// Config tunes the ingestion pipeline.
type Config struct {
	ChunkSize      int
	ChunkOverlap   int
	EmbedBatchSize int
	CallTimeout    time.Duration
}

// Service implements queue.Handler.
type Service struct {
	loader   Loader
	embedder domain.Embedder
	index    Index
	cfg      Config
	logger   *zap.Logger
}

// New creates the ingestion service.
func New(loader Loader, embedder domain.Embedder, index Index, cfg Config, logger *zap.Logger) *Service {
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 32
	}
	return &Service{loader: loader, embedder: embedder, index: index, cfg: cfg, logger: logger}
}

// Process ingests one uploaded file. The file's chunks only become
// visible to retrieval after the final upsert; if that upsert fails
// partway, the records written in this run are removed again.
func (s *Service) Process(ctx context.Context, job domain.UploadJob) (int, error) {
	segments, err := s.loader.Load(job.SourcePath)
	if err != nil {
		return 0, err
	}
	if len(segments) == 0 {
		return 0, fmt.Errorf("%s: %w", job.Filename, domain.ErrEmptyDocument)
	}

	chunks, err := chunker.Split(segments, job.Filename, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("chunk %s: %w", job.Filename, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%s: %w", job.Filename, domain.ErrEmptyDocument)
	}

	s.logger.Debug("Document chunked",
		zap.String("job_id", job.ID),
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(chunks)),
	)

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return 0, err
	}

	records := make([]domain.IndexedRecord, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = domain.RecordID(c)
		records[i] = domain.IndexedRecord{
			ID:     ids[i],
			Vector: vectors[i],
			Chunk:  c,
			JobID:  job.ID,
		}
	}

	if err := s.upsert(ctx, records); err != nil {
		s.cleanup(ctx, job.ID, ids)
		return 0, err
	}

	metrics.IngestChunksIndexed.Add(float64(len(records)))
	return len(chunks), nil
}

// embedChunks embeds all chunk texts in bounded batches. Nothing is
// upserted until every chunk of the file is embedded.
func (s *Service) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := start + s.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		callCtx, cancel := s.callCtx(ctx)
		batch, err := s.embedder.EmbedBatch(callCtx, texts)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d..%d: %w", start, end-1, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *Service) upsert(ctx context.Context, records []domain.IndexedRecord) error {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.index.Upsert(callCtx, records)
}

// cleanup removes the records of a failed run (tag-and-delete policy).
// Best effort: leftover records carry deterministic ids and are
// overwritten by a successful retry anyway.
func (s *Service) cleanup(ctx context.Context, jobID string, ids []string) {
	callCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.index.DeleteByIDs(callCtx, ids); err != nil {
		s.logger.Warn("Failed to clean up partial upsert",
			zap.String("job_id", jobID),
			zap.Int("records", len(ids)),
			zap.Error(err),
		)
	}
}

func (s *Service) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.CallTimeout)
}
