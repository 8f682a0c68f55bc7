package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vexlio/streambridge/internal/config"
	"github.com/vexlio/streambridge/internal/domain"
)

// HTTPDownloader implements Downloader using HTTP requests.
type HTTPDownloader struct {
	// client is used for short requests (Probe) with an overall timeout
	client *http.Client
	// streamClient is used for streaming downloads without an overall
	// timeout; stalls are caught by the progress reader instead
	streamClient *http.Client
	userAgent    string
	cfg          config.DownloadConfig
	logger       *slog.Logger
}

// NewHTTPDownloader creates a new HTTP-based media downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}

	streamTransport := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.ProbeTimeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		userAgent: cfg.UserAgent,
		cfg:       cfg,
		logger:    logger,
	}
}

// Download fetches content from URL with retry and exponential backoff.
// Returns a progress-tracking reader for streaming.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	var lastErr error
	delay := d.cfg.RetryDelay

	for attempt := 0; attempt < 3; attempt++ {
		reader, size, err := d.downloadOnce(ctx, url)
		if err == nil {
			return reader, size, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > d.cfg.MaxRetryDelay {
			delay = d.cfg.MaxRetryDelay
		}
	}

	return nil, 0, fmt.Errorf("download failed after retries: %w", lastErr)
}

func (d *HTTPDownloader) downloadOnce(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "video/mp4,video/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.streamClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, 0, domain.ErrURLExpired
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, 0, domain.ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	size := resp.ContentLength
	if size < 0 {
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			size, _ = strconv.ParseInt(cl, 10, 64)
		}
	}

	return newProgressReader(resp.Body, size, d.cfg.ReadTimeout, d.logger, url), size, nil
}

// Probe checks URL accessibility without downloading content.
func (d *HTTPDownloader) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return &ProbeResult{
			Accessible: false,
			Error:      err.Error(),
		}, nil
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		Accessible:    resp.StatusCode == http.StatusOK,
	}

	if !result.Accessible {
		result.Error = fmt.Sprintf("status code %d", resp.StatusCode)
	}

	return result, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	// Expired URLs won't come back
	if errors.Is(err, domain.ErrURLExpired) {
		return false
	}
	return true
}

// progressReader wraps an io.ReadCloser to track download progress and
// detect stalls (no data for readTimeout).
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	lastRead    time.Time
	lastLog     time.Time
	logger      *slog.Logger
	url         string
	mu          sync.Mutex
	closed      bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, logger *slog.Logger, url string) *progressReader {
	now := time.Now()
	return &progressReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		lastRead:    now,
		lastLog:     now,
		logger:      logger,
		url:         url,
	}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		p.downloaded += int64(n)
		p.lastRead = time.Now()

		if time.Since(p.lastLog) > 10*time.Second {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}

	if err == nil && p.readTimeout > 0 && time.Since(p.lastRead) > p.readTimeout {
		return n, fmt.Errorf("download stalled: no data received for %v", p.readTimeout)
	}

	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	if p.downloaded > 0 {
		p.logProgress()
	}
	p.mu.Unlock()

	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Info("download progress",
			"downloaded", humanize.Bytes(uint64(p.downloaded)),
			"total", humanize.Bytes(uint64(p.total)),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Info("download progress",
			"downloaded", humanize.Bytes(uint64(p.downloaded)),
		)
	}
}
