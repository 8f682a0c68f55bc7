package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vexlio/streambridge/internal/domain"
)

// DownloadManager queues download jobs and reports on them.
type DownloadManager interface {
	Submit(ctx context.Context, rawURL, quality string) (*domain.DownloadJob, error)
	Get(ctx context.Context, id domain.JobID) (*domain.DownloadJob, error)
	List(ctx context.Context, limit, offset int) ([]*domain.DownloadJob, int, error)
	FilePath(ctx context.Context, id domain.JobID) (string, error)
}

// DownloadHandler handles download-job HTTP requests.
type DownloadHandler struct {
	downloads DownloadManager
	logger    *slog.Logger
}

// NewDownloadHandler creates a new download handler.
func NewDownloadHandler(downloads DownloadManager, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
		logger:    logger,
	}
}

// SubmitRequest is the JSON request body for download submission.
type SubmitRequest struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
}

// SubmitResponse is the JSON response after submission.
type SubmitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// JobResponse represents a job in list/get responses.
type JobResponse struct {
	JobID      string    `json:"job_id"`
	URL        string    `json:"url"`
	Quality    string    `json:"quality"`
	Status     string    `json:"status"`
	Progress   string    `json:"progress"`
	BytesTotal int64     `json:"bytes_total"`
	BytesDone  int64     `json:"bytes_done"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListResponse contains a paginated job list.
type ListResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// Submit handles POST /api/v1/downloads
func (h *DownloadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.downloads.Submit(r.Context(), req.URL, req.Quality)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSourceURL) {
			writeError(w, http.StatusBadRequest, "invalid media URL")
			return
		}
		h.logger.Error("submit failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to queue download")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		JobID:   job.ID.String(),
		Status:  string(job.Status),
		Message: "download queued",
	})
}

// List handles GET /api/v1/downloads
func (h *DownloadHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	jobs, total, err := h.downloads.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list downloads")
		return
	}

	response := ListResponse{
		Jobs:   make([]JobResponse, 0, len(jobs)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	writeJSON(w, http.StatusOK, response)
}

// Get handles GET /api/v1/downloads/{jobID}
func (h *DownloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, err := h.downloads.Get(r.Context(), domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "download not found")
			return
		}
		h.logger.Error("get failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get download")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// File handles GET /api/v1/downloads/{jobID}/file
func (h *DownloadHandler) File(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	path, err := h.downloads.FilePath(r.Context(), domain.JobID(jobID))
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "download not found")
			return
		}
		if errors.Is(err, domain.ErrFileNotReady) {
			writeError(w, http.StatusConflict, "download not finished yet")
			return
		}
		h.logger.Error("file lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to locate file")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func toJobResponse(job *domain.DownloadJob) JobResponse {
	progress := ""
	if p := job.Progress(); p >= 0 {
		progress = fmt.Sprintf("%.1f%%", p*100)
	}
	return JobResponse{
		JobID:      job.ID.String(),
		URL:        job.RequestURL,
		Quality:    job.Quality,
		Status:     string(job.Status),
		Progress:   progress,
		BytesTotal: job.BytesTotal,
		BytesDone:  job.BytesDone,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
}
