package domain

import (
	"context"
	"errors"
)

var (
	// ErrLoadFailed signals an unreadable or unparsable source file.
	ErrLoadFailed = errors.New("load failed")
	// ErrEmptyDocument signals a file with no extractable text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index failure.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrRetrievalFailed signals a query-time retrieval failure.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrSynthesisFailed signals a generative completion failure.
	ErrSynthesisFailed = errors.New("answer synthesis failed")
	// ErrJobNotFound signals an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrInvalidUpload signals a rejected upload request.
	ErrInvalidUpload = errors.New("invalid upload")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)

// IsRetryable classifies an ingestion failure. Provider and index
// errors (including call timeouts) are transient; a file that cannot
// be parsed or yields no text will not get better on retry.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrLoadFailed), errors.Is(err, ErrEmptyDocument):
		return false
	case errors.Is(err, ErrEmbeddingProvider), errors.Is(err, ErrIndexUnavailable):
		return true
	case errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
