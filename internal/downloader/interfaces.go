package downloader

import (
	"context"
	"io"
)

// Downloader fetches media content from URLs.
type Downloader interface {
	// Download fetches content from URL and returns a reader plus the
	// total size (-1 when unknown). Caller is responsible for closing
	// the reader.
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)

	// Probe checks URL accessibility without downloading content.
	Probe(ctx context.Context, url string) (*ProbeResult, error)
}

// ProbeResult contains information about a media URL.
type ProbeResult struct {
	ContentType   string
	ContentLength int64
	Accessible    bool
	Error         string
}
