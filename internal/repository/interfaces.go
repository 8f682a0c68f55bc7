package repository

import (
	"context"

	"github.com/vexlio/streambridge/internal/domain"
)

// JobRepository stores download jobs and hands them out to workers.
type JobRepository interface {
	// Create persists a new job.
	Create(ctx context.Context, job *domain.DownloadJob) error

	// ClaimNext atomically claims the oldest queued job, transitioning
	// it to downloading. Returns domain.ErrNoJobs when the queue is
	// empty.
	ClaimNext(ctx context.Context) (*domain.DownloadJob, error)

	// Update persists the job's current state.
	Update(ctx context.Context, job *domain.DownloadJob) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.DownloadJob, error)

	// List returns jobs ordered newest first, plus the total count.
	List(ctx context.Context, limit, offset int) ([]*domain.DownloadJob, int, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job counts by status.
type QueueStats struct {
	Queued      int
	Downloading int
	Completed   int
	Failed      int
}
