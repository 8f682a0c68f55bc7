package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vexlio/streambridge/internal/domain"
)

type stubDownloads struct {
	jobs     map[domain.JobID]*domain.DownloadJob
	filePath string
	fileErr  error
}

func newStubDownloads() *stubDownloads {
	return &stubDownloads{jobs: make(map[domain.JobID]*domain.DownloadJob)}
}

func (s *stubDownloads) Submit(_ context.Context, rawURL, quality string) (*domain.DownloadJob, error) {
	if !strings.HasPrefix(rawURL, "http") {
		return nil, domain.ErrInvalidSourceURL
	}
	if quality == "" {
		quality = "1080p"
	}
	job := domain.NewDownloadJob("job-1", rawURL, quality)
	s.jobs[job.ID] = job
	return job, nil
}

func (s *stubDownloads) Get(_ context.Context, id domain.JobID) (*domain.DownloadJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func (s *stubDownloads) List(_ context.Context, limit, offset int) ([]*domain.DownloadJob, int, error) {
	var jobs []*domain.DownloadJob
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs, len(jobs), nil
}

func (s *stubDownloads) FilePath(_ context.Context, id domain.JobID) (string, error) {
	if s.fileErr != nil {
		return "", s.fileErr
	}
	if _, ok := s.jobs[id]; !ok {
		return "", domain.ErrJobNotFound
	}
	return s.filePath, nil
}

// withURLParam attaches a chi route parameter to the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDownloadSubmit_Accepted(t *testing.T) {
	h := NewDownloadHandler(newStubDownloads(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads",
		strings.NewReader(`{"url":"https://example.com/v.mp4","quality":"720p"}`))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var resp SubmitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.JobID == "" {
		t.Error("job_id missing from response")
	}
	if resp.Status != string(domain.JobStatusQueued) {
		t.Errorf("status = %q, want queued", resp.Status)
	}
}

func TestDownloadSubmit_InvalidURL(t *testing.T) {
	h := NewDownloadHandler(newStubDownloads(), testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads",
		strings.NewReader(`{"url":"not-a-url"}`))
	rec := httptest.NewRecorder()

	h.Submit(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDownloadGet(t *testing.T) {
	stub := newStubDownloads()
	job := domain.NewDownloadJob("job-1", "https://example.com/v.mp4", "1080p")
	job.MarkDownloading("https://cdn.example.com/sample.mp4", 1000)
	job.BytesDone = 500
	stub.jobs[job.ID] = job

	h := NewDownloadHandler(stub, testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/job-1", nil), "jobID", "job-1")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp JobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != string(domain.JobStatusDownloading) {
		t.Errorf("status = %q, want downloading", resp.Status)
	}
	if resp.Progress != "50.0%" {
		t.Errorf("progress = %q, want 50.0%%", resp.Progress)
	}
}

func TestDownloadGet_NotFound(t *testing.T) {
	h := NewDownloadHandler(newStubDownloads(), testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/ghost", nil), "jobID", "ghost")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadList(t *testing.T) {
	stub := newStubDownloads()
	for _, id := range []domain.JobID{"a", "b"} {
		job := domain.NewDownloadJob(id, "https://example.com/"+id.String(), "")
		job.CreatedAt = time.Now()
		stub.jobs[id] = job
	}

	h := NewDownloadHandler(stub, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads?limit=10", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Jobs) != 2 {
		t.Errorf("total = %d, jobs = %d, want 2/2", resp.Total, len(resp.Jobs))
	}
	if resp.Limit != 10 {
		t.Errorf("limit = %d, want 10", resp.Limit)
	}
}

func TestDownloadFile_ServesCompletedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-1.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	stub := newStubDownloads()
	job := domain.NewDownloadJob("job-1", "https://example.com/v.mp4", "")
	job.MarkCompleted(path)
	stub.jobs[job.ID] = job
	stub.filePath = path

	h := NewDownloadHandler(stub, testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/job-1/file", nil), "jobID", "job-1")
	rec := httptest.NewRecorder()

	h.File(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "video-bytes" {
		t.Errorf("body = %q, want file contents", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "job-1.mp4") {
		t.Errorf("Content-Disposition = %q, want filename", cd)
	}
}

func TestDownloadFile_NotReady(t *testing.T) {
	stub := newStubDownloads()
	stub.jobs["job-1"] = domain.NewDownloadJob("job-1", "https://example.com/v.mp4", "")
	stub.fileErr = domain.ErrFileNotReady

	h := NewDownloadHandler(stub, testLogger())

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/downloads/job-1/file", nil), "jobID", "job-1")
	rec := httptest.NewRecorder()

	h.File(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
