package queue

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/db"
	"github.com/querydocs/querydocs/internal/domain"
	"github.com/querydocs/querydocs/internal/metrics"
)

// Handler processes one upload job end-to-end and reports how many
// chunks it indexed. Processing must be idempotent: the same job can
// be delivered more than once.
type Handler interface {
	Process(ctx context.Context, job domain.UploadJob) (chunkCount int, err error)
}

// WorkerConfig tunes the consumer pool.
type WorkerConfig struct {
	Concurrency  int
	MaxAttempts  int
	BackoffBase  time.Duration
	BlockTimeout time.Duration
	ClaimIdle    time.Duration
}

// Worker is a bounded pool of stream consumers driving the ingestion
// pipeline. Each consumer processes one job at a time; up to
// Concurrency jobs run in parallel.
type Worker struct {
	queue   *Queue
	handler Handler
	cfg     WorkerConfig
	logger  *zap.Logger
}

// NewWorker creates a worker pool over the queue.
func NewWorker(q *Queue, h Handler, cfg WorkerConfig, logger *zap.Logger) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{queue: q, handler: h, cfg: cfg, logger: logger}
}

// Run creates the consumer group and blocks consuming jobs until ctx
// is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.queue.store.GroupCreate(ctx, w.queue.Stream(), Group); err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}

	host, _ := os.Hostname()
	if host == "" {
		host = "worker"
	}

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		consumer := fmt.Sprintf("%s-%d", host, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consume(ctx, consumer)
		}()
	}
	wg.Wait()
	return nil
}

// consume is one consumer loop: reclaim stale deliveries from crashed
// consumers, then read new entries.
func (w *Worker) consume(ctx context.Context, consumer string) {
	log := w.logger.With(zap.String("consumer", consumer))

	for ctx.Err() == nil {
		entries, err := w.queue.store.AutoClaim(
			ctx, w.queue.Stream(), Group, consumer, w.cfg.ClaimIdle, 1,
		)
		if err != nil && ctx.Err() == nil {
			log.Warn("Autoclaim failed", zap.Error(err))
		}

		if len(entries) == 0 {
			entries, err = w.queue.store.ReadGroup(
				ctx, w.queue.Stream(), Group, consumer, 1, w.cfg.BlockTimeout,
			)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("Read failed", zap.Error(err))
				sleepCtx(ctx, time.Second)
				continue
			}
		}

		if depth, err := w.queue.Depth(ctx); err == nil {
			metrics.QueueDepth.Set(float64(depth))
		}

		for _, entry := range entries {
			w.handleDelivery(ctx, log, entry)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, log *zap.Logger, entry db.StreamEntry) {
	d, err := decodeDelivery(entry)
	if err != nil {
		// Poison entry: nothing to retry, drop it from the group.
		log.Error("Dropping undecodable entry", zap.String("entry_id", entry.ID), zap.Error(err))
		w.ack(ctx, log, entry.ID)
		return
	}

	log = log.With(
		zap.String("job_id", d.job.ID),
		zap.String("filename", d.job.Filename),
		zap.Int("attempt", d.attempt),
	)
	log.Info("Processing job")

	w.queue.setState(ctx, domain.JobState{
		ID:       d.job.ID,
		Filename: d.job.Filename,
		Status:   domain.JobProcessing,
		Attempt:  d.attempt,
	})

	start := time.Now()
	chunkCount, err := w.handler.Process(ctx, d.job)
	metrics.IngestJobDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		w.queue.setState(ctx, domain.JobState{
			ID:         d.job.ID,
			Filename:   d.job.Filename,
			Status:     domain.JobSucceeded,
			Attempt:    d.attempt,
			ChunkCount: chunkCount,
		})
		metrics.IngestJobsTotal.WithLabelValues("succeeded").Inc()
		log.Info("Job succeeded",
			zap.Int("chunks", chunkCount),
			zap.Duration("duration", time.Since(start)),
		)

	case domain.IsRetryable(err) && d.attempt < w.cfg.MaxAttempts:
		if !w.requeue(ctx, log, d, err) {
			// Keep the entry pending so a later reclaim retries it.
			return
		}
		metrics.IngestJobsTotal.WithLabelValues("retried").Inc()

	default:
		w.bury(ctx, log, d, err)
		metrics.IngestJobsTotal.WithLabelValues("failed").Inc()
	}

	w.ack(ctx, log, entry.ID)
}

// requeue re-adds the job with an incremented attempt counter after a
// backoff delay. Returns false when the new entry could not be written,
// in which case the original delivery must stay unacked.
func (w *Worker) requeue(ctx context.Context, log *zap.Logger, d delivery, cause error) bool {
	delay := Backoff(w.cfg.BackoffBase, d.attempt)
	log.Warn("Job failed, retrying",
		zap.Error(cause),
		zap.Duration("backoff", delay),
		zap.Int("next_attempt", d.attempt+1),
	)
	sleepCtx(ctx, delay)

	fields, err := encodeDelivery(d.job, d.attempt+1)
	if err != nil {
		w.bury(ctx, log, d, cause)
		return true
	}
	if _, err := w.queue.store.XAdd(ctx, w.queue.Stream(), fields); err != nil {
		// The unacked original will be reclaimed later; do not lose the job.
		log.Error("Failed to requeue, leaving entry pending", zap.Error(err))
		return false
	}

	w.queue.setState(ctx, domain.JobState{
		ID:       d.job.ID,
		Filename: d.job.Filename,
		Status:   domain.JobQueued,
		Attempt:  d.attempt,
		Error:    cause.Error(),
	})
	return true
}

// bury marks the job failed and copies it to the dead-letter stream.
func (w *Worker) bury(ctx context.Context, log *zap.Logger, d delivery, cause error) {
	log.Error("Job failed permanently", zap.Error(cause))

	w.queue.setState(ctx, domain.JobState{
		ID:       d.job.ID,
		Filename: d.job.Filename,
		Status:   domain.JobFailed,
		Attempt:  d.attempt,
		Error:    cause.Error(),
	})

	fields, err := encodeDelivery(d.job, d.attempt)
	if err != nil {
		return
	}
	fields["error"] = cause.Error()
	if _, err := w.queue.store.XAdd(ctx, w.queue.DeadStream(), fields); err != nil {
		log.Warn("Failed to write dead-letter entry", zap.Error(err))
	}
}

func (w *Worker) ack(ctx context.Context, log *zap.Logger, entryID string) {
	if err := w.queue.store.Ack(ctx, w.queue.Stream(), Group, entryID); err != nil {
		log.Warn("Ack failed", zap.String("entry_id", entryID), zap.Error(err))
	}
}

// Backoff returns the delay before retry attempt+1: base doubled per
// completed attempt, capped at one minute.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << (attempt - 1)
	if d > time.Minute {
		return time.Minute
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
