// Package service orchestrates the download simulation: selecting the
// source to stream (the submitted URL when it points directly at a
// media file, otherwise the configured sample video), tracking job
// progress, and writing the result to local storage.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/vexlio/streambridge/internal/config"
	"github.com/vexlio/streambridge/internal/domain"
	"github.com/vexlio/streambridge/internal/downloader"
	"github.com/vexlio/streambridge/internal/repository"
)

// mediaExtensions are URL path suffixes treated as direct media links.
var mediaExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mkv": true, ".mov": true, ".avi": true,
	".mp3": true, ".m4a": true, ".ogg": true, ".wav": true,
}

// DownloadService manages download-simulation jobs.
type DownloadService struct {
	repo    repository.JobRepository
	dl      downloader.Downloader
	storage config.StorageConfig
	cfg     config.DownloadConfig
	logger  *slog.Logger
}

// NewDownloadService creates a download service.
func NewDownloadService(
	repo repository.JobRepository,
	dl downloader.Downloader,
	storage config.StorageConfig,
	cfg config.DownloadConfig,
	logger *slog.Logger,
) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadService{
		repo:    repo,
		dl:      dl,
		storage: storage,
		cfg:     cfg,
		logger:  logger,
	}
}

// Submit validates the request and queues a new download job.
func (s *DownloadService) Submit(ctx context.Context, rawURL, quality string) (*domain.DownloadJob, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, domain.ErrInvalidSourceURL
	}

	if quality == "" {
		quality = "1080p"
	}

	job := domain.NewDownloadJob(domain.JobID(uuid.NewString()), rawURL, quality)
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("queue job: %w", err)
	}

	s.logger.Info("download queued",
		"job_id", job.ID,
		"url", rawURL,
		"quality", quality,
	)
	return job, nil
}

// Process streams the job's source to local storage, updating byte
// progress as it goes. Called by the worker pool after a job has been
// claimed.
func (s *DownloadService) Process(ctx context.Context, job *domain.DownloadJob) error {
	source := s.selectSource(ctx, job.RequestURL)

	reader, size, err := s.dl.Download(ctx, source)
	if err != nil {
		s.fail(ctx, job, err)
		return domain.NewJobError(job.ID, "download", err)
	}
	defer reader.Close()

	job.MarkDownloading(source, size)
	if err := s.repo.Update(ctx, job); err != nil {
		return domain.NewJobError(job.ID, "update", err)
	}

	path := filepath.Join(s.storage.BasePath, job.ID.String()+".mp4")
	file, err := os.Create(path)
	if err != nil {
		s.fail(ctx, job, err)
		return domain.NewJobError(job.ID, "create file", err)
	}

	written, err := s.copyWithProgress(ctx, job, file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		s.fail(ctx, job, err)
		return domain.NewJobError(job.ID, "stream", err)
	}

	job.BytesDone = written
	if job.BytesTotal <= 0 {
		job.BytesTotal = written
	}
	job.MarkCompleted(path)
	if err := s.repo.Update(ctx, job); err != nil {
		return domain.NewJobError(job.ID, "update", err)
	}

	s.logger.Info("download completed",
		"job_id", job.ID,
		"source", source,
		"size", humanize.Bytes(uint64(written)),
	)
	return nil
}

// copyWithProgress copies reader to w, persisting job progress roughly
// twice a second. Progress writes are best effort; a failed update does
// not abort the stream.
func (s *DownloadService) copyWithProgress(ctx context.Context, job *domain.DownloadJob, w io.Writer, reader io.Reader) (int64, error) {
	buf := make([]byte, 256*1024)
	var written int64
	lastFlush := time.Now()

	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)

			if time.Since(lastFlush) >= 500*time.Millisecond {
				job.BytesDone = written
				job.UpdatedAt = time.Now()
				if err := s.repo.Update(ctx, job); err != nil {
					s.logger.Warn("progress update failed", "job_id", job.ID, "error", err)
				}
				lastFlush = time.Now()
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func (s *DownloadService) fail(ctx context.Context, job *domain.DownloadJob, cause error) {
	job.MarkFailed(cause.Error())
	if err := s.repo.Update(ctx, job); err != nil {
		s.logger.Error("failed to record job failure", "job_id", job.ID, "error", err)
	}
	s.logger.Warn("download failed", "job_id", job.ID, "error", cause)
}

// selectSource decides what actually gets streamed: the submitted URL
// when it points directly at a reachable media file, otherwise the
// configured sample video.
func (s *DownloadService) selectSource(ctx context.Context, rawURL string) string {
	probe, err := s.dl.Probe(ctx, rawURL)
	if err != nil || !probe.Accessible {
		return s.cfg.SampleURL
	}

	ct := strings.ToLower(probe.ContentType)
	if strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "audio/") {
		return rawURL
	}
	if hasMediaExtension(rawURL) {
		return rawURL
	}
	return s.cfg.SampleURL
}

func hasMediaExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return mediaExtensions[strings.ToLower(filepath.Ext(parsed.Path))]
}

// Get returns the job with the given ID.
func (s *DownloadService) Get(ctx context.Context, id domain.JobID) (*domain.DownloadJob, error) {
	return s.repo.Get(ctx, id)
}

// List returns jobs newest first plus the total count.
func (s *DownloadService) List(ctx context.Context, limit, offset int) ([]*domain.DownloadJob, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// FilePath returns the on-disk path of a completed job's file.
func (s *DownloadService) FilePath(ctx context.Context, id domain.JobID) (string, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != domain.JobStatusCompleted || job.FilePath == "" {
		return "", domain.ErrFileNotReady
	}
	return job.FilePath, nil
}
