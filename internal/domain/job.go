package domain

import "time"

// UploadJob describes one uploaded file awaiting ingestion.
// Immutable once enqueued; delivered at least once.
type UploadJob struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SourcePath string    `json:"source_path"`
	StorageDir string    `json:"storage_dir"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// JobStatus is the state machine of an ingestion job:
// queued -> processing -> {succeeded | queued (retry) | failed}.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// JobState is the bookkeeping record kept per job.
type JobState struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Status     JobStatus `json:"status"`
	Attempt    int       `json:"attempt"`
	ChunkCount int       `json:"chunk_count"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
