package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vexlio/streambridge/internal/domain"
	"github.com/vexlio/streambridge/internal/repository"
)

// ErrShutdownTimeout is returned when workers don't stop within timeout.
var ErrShutdownTimeout = errors.New("worker pool shutdown timed out")

// Processor runs a claimed download job to completion.
type Processor interface {
	Process(ctx context.Context, job *domain.DownloadJob) error
}

// Pool manages a pool of workers processing download jobs.
type Pool struct {
	workers      int
	pollInterval time.Duration
	jobRepo      repository.JobRepository
	processor    Processor
	logger       *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Config holds worker pool configuration.
type Config struct {
	Workers      int
	PollInterval time.Duration
}

// NewPool creates a new worker pool.
func NewPool(cfg Config, jobRepo repository.JobRepository, processor Processor, logger *slog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:      cfg.Workers,
		pollInterval: cfg.PollInterval,
		jobRepo:      jobRepo,
		processor:    processor,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches all workers.
func (p *Pool) Start() {
	p.logger.Info("starting worker pool", "workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully stops all workers.
func (p *Pool) Stop(timeout time.Duration) error {
	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	logger := p.logger.With("worker_id", id)
	logger.Info("worker started")

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			logger.Info("worker stopping")
			return
		case <-ticker.C:
			p.processNextJob(logger)
		}
	}
}

func (p *Pool) processNextJob(logger *slog.Logger) {
	job, err := p.jobRepo.ClaimNext(p.ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoJobs) && !errors.Is(err, context.Canceled) {
			logger.Error("failed to claim job", "error", err)
		}
		return
	}

	logger = logger.With("job_id", job.ID)
	logger.Info("processing job", "url", job.RequestURL)

	if err := p.processor.Process(p.ctx, job); err != nil {
		logger.Error("job failed", "error", err)
		return
	}

	logger.Info("job completed")
}
