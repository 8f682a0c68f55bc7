package domain

import (
	"time"
)

// JobID is a unique identifier for a download job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// JobStatus represents the current state of a download job.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// DownloadJob tracks one simulated download: the URL the user
// submitted, the source actually streamed (the URL itself when it is a
// direct media link, otherwise the configured sample file), and byte
// progress.
type DownloadJob struct {
	ID         JobID
	RequestURL string
	SourceURL  string
	Quality    string
	Status     JobStatus
	BytesTotal int64
	BytesDone  int64
	FilePath   string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDownloadJob creates a queued job for the given request.
func NewDownloadJob(id JobID, requestURL, quality string) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		ID:         id,
		RequestURL: requestURL,
		Quality:    quality,
		Status:     JobStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDownloading updates the job status to downloading.
func (j *DownloadJob) MarkDownloading(sourceURL string, total int64) {
	j.Status = JobStatusDownloading
	j.SourceURL = sourceURL
	j.BytesTotal = total
	j.UpdatedAt = time.Now()
}

// MarkCompleted updates the job status to completed.
func (j *DownloadJob) MarkCompleted(filePath string) {
	j.Status = JobStatusCompleted
	j.FilePath = filePath
	j.UpdatedAt = time.Now()
}

// MarkFailed updates the job status to failed with an error message.
func (j *DownloadJob) MarkFailed(err string) {
	j.Status = JobStatusFailed
	j.Error = err
	j.UpdatedAt = time.Now()
}

// Progress returns completion as a fraction in [0,1], or -1 when the
// total size is unknown.
func (j *DownloadJob) Progress() float64 {
	if j.BytesTotal <= 0 {
		return -1
	}
	p := float64(j.BytesDone) / float64(j.BytesTotal)
	if p > 1 {
		p = 1
	}
	return p
}
