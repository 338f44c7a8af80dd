// Package queue is the durable ingestion job queue: a Redis Stream
// with a consumer group, giving at-least-once delivery, plus per-job
// state bookkeeping in a hash.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/db"
	"github.com/querydocs/querydocs/internal/domain"
)

// Group is the consumer group all ingestion workers join.
const Group = "ingest-workers"

const (
	streamSuffix = "ingest:stream"
	deadSuffix   = "ingest:dead"
	jobKeyPrefix = "job:"

	payloadField = "job"
	attemptField = "attempt"
)

// store is the consumer interface for queue operations.
type store interface {
	XAdd(ctx context.Context, stream string, fields map[string]string) (string, error)
	GroupCreate(ctx context.Context, stream, group string) error
	ReadGroup(
		ctx context.Context, stream, group, consumer string,
		count int, block time.Duration,
	) ([]db.StreamEntry, error)
	Ack(ctx context.Context, stream, group string, ids ...string) error
	AutoClaim(
		ctx context.Context, stream, group, consumer string,
		minIdle time.Duration, count int,
	) ([]db.StreamEntry, error)
	StreamLen(ctx context.Context, stream string) (int64, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Queue enqueues upload jobs and tracks their state.
type Queue struct {
	store     store
	keyPrefix string
	stateTTL  time.Duration
	logger    *zap.Logger
}

// New creates a queue over the given store. stateTTL bounds how long
// terminal job state stays readable.
func New(s store, keyPrefix string, stateTTL time.Duration, logger *zap.Logger) *Queue {
	return &Queue{store: s, keyPrefix: keyPrefix, stateTTL: stateTTL, logger: logger}
}

// Stream returns the ingestion stream key.
func (q *Queue) Stream() string { return q.keyPrefix + streamSuffix }

// DeadStream returns the dead-letter stream key.
func (q *Queue) DeadStream() string { return q.keyPrefix + deadSuffix }

func (q *Queue) jobKey(id string) string { return q.keyPrefix + jobKeyPrefix + id }

// Enqueue appends a job to the stream and records it as queued.
// Returns the job id; the caller does not wait for completion.
func (q *Queue) Enqueue(ctx context.Context, job domain.UploadJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	fields, err := encodeDelivery(job, 1)
	if err != nil {
		return "", err
	}
	if _, err := q.store.XAdd(ctx, q.Stream(), fields); err != nil {
		return "", fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	q.setState(ctx, domain.JobState{
		ID:       job.ID,
		Filename: job.Filename,
		Status:   domain.JobQueued,
	})
	return job.ID, nil
}

// State returns the bookkeeping record of a job.
func (q *Queue) State(ctx context.Context, jobID string) (domain.JobState, error) {
	fields, err := q.store.HGetAll(ctx, q.jobKey(jobID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.JobState{}, domain.ErrJobNotFound
		}
		return domain.JobState{}, fmt.Errorf("job state %s: %w", jobID, err)
	}
	return stateFromFields(jobID, fields), nil
}

// Depth returns the number of entries in the ingestion stream.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.store.StreamLen(ctx, q.Stream())
}

// setState writes job state best-effort: losing a status update must
// not fail the job itself.
func (q *Queue) setState(ctx context.Context, st domain.JobState) {
	fields := map[string]string{
		"filename":    st.Filename,
		"status":      string(st.Status),
		"attempt":     strconv.Itoa(st.Attempt),
		"chunk_count": strconv.Itoa(st.ChunkCount),
		"error":       st.Error,
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	}
	key := q.jobKey(st.ID)
	if err := q.store.HSet(ctx, key, fields); err != nil {
		q.logger.Warn("Failed to write job state",
			zap.String("job_id", st.ID), zap.Error(err))
		return
	}
	if q.stateTTL > 0 {
		if err := q.store.Expire(ctx, key, q.stateTTL); err != nil {
			q.logger.Warn("Failed to set job state TTL",
				zap.String("job_id", st.ID), zap.Error(err))
		}
	}
}

func stateFromFields(jobID string, fields map[string]string) domain.JobState {
	st := domain.JobState{
		ID:       jobID,
		Filename: fields["filename"],
		Status:   domain.JobStatus(fields["status"]),
		Error:    fields["error"],
	}
	if v, err := strconv.Atoi(fields["attempt"]); err == nil {
		st.Attempt = v
	}
	if v, err := strconv.Atoi(fields["chunk_count"]); err == nil {
		st.ChunkCount = v
	}
	if t, err := time.Parse(time.RFC3339, fields["updated_at"]); err == nil {
		st.UpdatedAt = t
	}
	return st
}

// delivery is one decoded stream entry.
type delivery struct {
	entryID string
	job     domain.UploadJob
	attempt int
}

func encodeDelivery(job domain.UploadJob, attempt int) (map[string]string, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job %s: %w", job.ID, err)
	}
	return map[string]string{
		payloadField: string(payload),
		attemptField: strconv.Itoa(attempt),
	}, nil
}

func decodeDelivery(entry db.StreamEntry) (delivery, error) {
	var job domain.UploadJob
	if err := json.Unmarshal([]byte(entry.Fields[payloadField]), &job); err != nil {
		return delivery{}, fmt.Errorf("malformed job payload in entry %s: %w", entry.ID, err)
	}
	if job.ID == "" {
		return delivery{}, fmt.Errorf("entry %s has no job id", entry.ID)
	}
	attempt, err := strconv.Atoi(entry.Fields[attemptField])
	if err != nil || attempt < 1 {
		attempt = 1
	}
	return delivery{entryID: entry.ID, job: job, attempt: attempt}, nil
}
