// Package upload accepts incoming files, stages them on disk and
// enqueues an ingestion job per file.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
	"github.com/querydocs/querydocs/internal/loader"
)

// Service stages uploads and enqueues ingestion jobs.
type Service struct {
	queue    Enqueuer
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// New creates the upload service. Files are staged under dir, which is
// created on first use.
func New(queue Enqueuer, dir string, maxBytes int64, logger *zap.Logger) *Service {
	return &Service{queue: queue, dir: dir, maxBytes: maxBytes, logger: logger}
}

// Accept validates the upload, writes it to the staging directory and
// enqueues an ingestion job. It returns the job id without waiting for
// ingestion to run.
func (s *Service) Accept(ctx context.Context, filename string, r io.Reader) (string, error) {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("missing filename: %w", domain.ErrInvalidUpload)
	}
	ext := filepath.Ext(base)
	if !loader.SupportedExt(ext) {
		return "", fmt.Errorf("unsupported file type %q: %w", ext, domain.ErrInvalidUpload)
	}

	path, err := s.stage(base, ext, r)
	if err != nil {
		return "", err
	}

	jobID, err := s.queue.Enqueue(ctx, domain.UploadJob{
		Filename:   base,
		SourcePath: path,
		StorageDir: s.dir,
	})
	if err != nil {
		// Nothing will ever pick the staged file up, remove it.
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("Failed to remove staged file", zap.String("path", path), zap.Error(rmErr))
		}
		return "", err
	}

	s.logger.Info("Upload accepted",
		zap.String("job_id", jobID),
		zap.String("filename", base),
	)
	return jobID, nil
}

// stage writes the upload to a unique file under the staging directory.
func (s *Service) stage(base, ext string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir %s: %w", s.dir, err)
	}

	name := strings.TrimSuffix(base, ext)
	path := filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", name, time.Now().UnixNano(), ext))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	defer f.Close()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		os.Remove(path)
		return "", fmt.Errorf("file exceeds %d bytes: %w", s.maxBytes, domain.ErrInvalidUpload)
	}
	if n == 0 {
		os.Remove(path)
		return "", fmt.Errorf("empty file: %w", domain.ErrInvalidUpload)
	}
	return path, nil
}
