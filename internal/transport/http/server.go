// Package http is the chi-based API surface: uploads, job status,
// chat and operational endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/domain"
	healthuc "github.com/querydocs/querydocs/internal/usecase/health"
)

// Uploader accepts a file stream and returns the ingestion job id.
type Uploader interface {
	Accept(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Asker answers a question grounded in indexed documents.
type Asker interface {
	Ask(ctx context.Context, question string, k int) (domain.Answer, error)
}

// JobStater reports the bookkeeping state of an ingestion job.
type JobStater interface {
	State(ctx context.Context, jobID string) (domain.JobState, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	upload        Uploader
	chat          Asker
	jobs          JobStater
	health        *healthuc.Service
	maxUploadSize int64
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	upload Uploader,
	chat Asker,
	jobs JobStater,
	health *healthuc.Service,
	maxUploadSize int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		upload:        upload,
		chat:          chat,
		jobs:          jobs,
		health:        health,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidUpload, http.StatusBadRequest, "invalid_upload"),
		sentinelHandler(domain.ErrJobNotFound, http.StatusNotFound, "job_not_found"),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrRetrievalFailed, http.StatusBadGateway, "retrieval_failed"),
		sentinelHandler(domain.ErrSynthesisFailed, http.StatusBadGateway, "synthesis_failed"),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, "index_unavailable"),
	}
	return s
}

// Routes mounts all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/upload", s.Upload)
	r.Get("/jobs/{jobID}", s.JobStatus)
	r.Get("/chat", s.Chat)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Upload handles POST /upload. The file is staged and queued; the
// response returns before ingestion runs.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Missing multipart field \"file\": "+err.Error())
		return
	}
	defer file.Close()

	jobID, err := s.upload.Accept(r.Context(), header.Filename, file)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, uploadResponse{JobID: jobID})
}

// JobStatus handles GET /jobs/{jobID}.
func (s *Server) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	st, err := s.jobs.State(r.Context(), jobID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobStateToResponse(st))
}

// Chat handles GET /chat?q=&k=.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Query parameter \"q\" is required")
		return
	}

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "validation_failed", "Query parameter \"k\" must be a positive integer")
			return
		}
		k = v
	}

	answer, err := s.chat.Ask(r.Context(), q, k)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type uploadResponse struct {
	JobID string `json:"job_id"`
}

type jobStateResponse struct {
	JobID      string `json:"job_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Attempt    int    `json:"attempt"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func jobStateToResponse(st domain.JobState) jobStateResponse {
	resp := jobStateResponse{
		JobID:      st.ID,
		Filename:   st.Filename,
		Status:     string(st.Status),
		Attempt:    st.Attempt,
		ChunkCount: st.ChunkCount,
		Error:      st.Error,
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = st.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidUpload,
		domain.ErrJobNotFound,
		domain.ErrEmbeddingProvider,
		domain.ErrRetrievalFailed,
		domain.ErrSynthesisFailed,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
