package domain

import "errors"

// Domain errors.
var (
	// ErrJobNotFound is returned when a download job cannot be found.
	ErrJobNotFound = errors.New("download job not found")

	// ErrNoJobs is returned when there are no queued jobs to claim.
	ErrNoJobs = errors.New("no jobs available")

	// ErrInvalidSourceURL is returned when the submitted URL is not a
	// valid absolute http(s) URL.
	ErrInvalidSourceURL = errors.New("invalid source URL")

	// ErrFileNotReady is returned when a job's file is requested before
	// the download has completed.
	ErrFileNotReady = errors.New("download not completed")

	// ErrDownloadFailed is returned when streaming the source fails.
	ErrDownloadFailed = errors.New("download failed")

	// ErrURLExpired is returned when the source URL has expired.
	ErrURLExpired = errors.New("source URL has expired")

	// ErrRateLimited is returned when rate limited by the source.
	ErrRateLimited = errors.New("rate limited")
)

// JobError wraps an error with download-job context.
type JobError struct {
	JobID JobID
	Op    string
	Err   error
}

func (e *JobError) Error() string {
	if e.JobID != "" {
		return e.Op + " [" + e.JobID.String() + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// NewJobError creates a new JobError.
func NewJobError(jobID JobID, op string, err error) *JobError {
	return &JobError{JobID: jobID, Op: op, Err: err}
}
