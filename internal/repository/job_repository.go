package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vexlio/streambridge/internal/domain"
)

// SQLiteJobRepository implements JobRepository on a SQLite database.
// Only download-job state lives here; resolved metadata is never
// persisted.
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository opens (creating if necessary) the job database
// at path and ensures the schema exists.
func NewSQLiteJobRepository(path string) (*SQLiteJobRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles one writer at a time; serialize access through a
	// single connection to avoid SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS download_jobs (
			id TEXT PRIMARY KEY,
			request_url TEXT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			quality TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			bytes_total INTEGER NOT NULL DEFAULT 0,
			bytes_done INTEGER NOT NULL DEFAULT 0,
			file_path TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_download_jobs_status ON download_jobs(status);
		CREATE INDEX IF NOT EXISTS idx_download_jobs_created ON download_jobs(created_at);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Close closes the underlying database.
func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

// Create persists a new job.
func (r *SQLiteJobRepository) Create(ctx context.Context, job *domain.DownloadJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO download_jobs
			(id, request_url, source_url, quality, status, bytes_total, bytes_done, file_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.RequestURL, job.SourceURL, job.Quality, string(job.Status),
		job.BytesTotal, job.BytesDone, job.FilePath, job.Error,
		job.CreatedAt.UTC().Format(time.RFC3339Nano), job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// ClaimNext atomically claims the oldest queued job.
func (r *SQLiteJobRepository) ClaimNext(ctx context.Context) (*domain.DownloadJob, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, request_url, source_url, quality, status, bytes_total, bytes_done, file_path, error, created_at, updated_at
		FROM download_jobs
		WHERE status = ?
		ORDER BY created_at
		LIMIT 1`,
		string(domain.JobStatusQueued),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoJobs
		}
		return nil, fmt.Errorf("select queued job: %w", err)
	}

	job.Status = domain.JobStatusDownloading
	job.UpdatedAt = time.Now()

	if _, err := tx.ExecContext(ctx, `
		UPDATE download_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.UpdatedAt.UTC().Format(time.RFC3339Nano), job.ID.String(),
	); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return job, nil
}

// Update persists the job's current state.
func (r *SQLiteJobRepository) Update(ctx context.Context, job *domain.DownloadJob) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE download_jobs
		SET source_url = ?, quality = ?, status = ?, bytes_total = ?, bytes_done = ?, file_path = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		job.SourceURL, job.Quality, string(job.Status),
		job.BytesTotal, job.BytesDone, job.FilePath, job.Error,
		job.UpdatedAt.UTC().Format(time.RFC3339Nano), job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Get retrieves a job by ID.
func (r *SQLiteJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.DownloadJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, request_url, source_url, quality, status, bytes_total, bytes_done, file_path, error, created_at, updated_at
		FROM download_jobs WHERE id = ?`,
		id.String(),
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return job, nil
}

// List returns jobs ordered newest first, plus the total count.
func (r *SQLiteJobRepository) List(ctx context.Context, limit, offset int) ([]*domain.DownloadJob, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM download_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_url, source_url, quality, status, bytes_total, bytes_done, file_path, error, created_at, updated_at
		FROM download_jobs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.DownloadJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, total, nil
}

// Stats returns queue statistics.
func (r *SQLiteJobRepository) Stats(ctx context.Context) (*QueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM download_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	stats := &QueueStats{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch domain.JobStatus(status) {
		case domain.JobStatusQueued:
			stats.Queued = count
		case domain.JobStatusDownloading:
			stats.Downloading = count
		case domain.JobStatusCompleted:
			stats.Completed = count
		case domain.JobStatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}

	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*domain.DownloadJob, error) {
	var job domain.DownloadJob
	var id, status, createdAt, updatedAt string

	if err := s.Scan(
		&id, &job.RequestURL, &job.SourceURL, &job.Quality, &status,
		&job.BytesTotal, &job.BytesDone, &job.FilePath, &job.Error,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	job.ID = domain.JobID(id)
	job.Status = domain.JobStatus(status)

	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &job, nil
}
