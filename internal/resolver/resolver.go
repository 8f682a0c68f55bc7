// Package resolver produces descriptive metadata for a media URL by
// racing a generative-AI lookup against a fixed deadline, falling back
// to synthesized placeholder data whenever the lookup loses, fails, or
// returns an unusable payload.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vexlio/streambridge/internal/domain"
	"github.com/vexlio/streambridge/internal/fallback"
)

// Field defaults applied when a lookup payload is present but a field
// is missing or empty.
const (
	DefaultTitle    = "Found Media Content"
	DefaultAuthor   = "Source Verified"
	DefaultViews    = "N/A"
	DefaultDuration = "00:00"
	DefaultSummary  = "Media analysis complete."
)

// MetadataClient performs one metadata lookup for a URL and returns the
// raw text payload, expected to be a JSON object. Implementations must
// honor context cancellation.
type MetadataClient interface {
	Lookup(ctx context.Context, url string) (string, error)
}

// Resolver resolves metadata for media URLs. Resolve is total: it
// always returns a fully populated value within the configured deadline
// and never reports an error to its caller. Each call is independent;
// a Resolver may be used concurrently.
type Resolver struct {
	client  MetadataClient
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Resolver. The timeout bounds the lookup race; values
// <= 0 fall back to 25 seconds.
func New(client MetadataClient, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

type lookupResult struct {
	raw string
	err error
}

// Resolve returns metadata for the given URL. The lookup and the
// deadline race; first settlement wins. Every failure mode (timeout,
// lookup error, unusable payload, panic) is absorbed and converted to
// synthesized fallback output, so the caller cannot observe an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (meta domain.VideoMetadata) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("metadata resolution panicked", "url", rawURL, "panic", rec)
			meta = fallback.Synthesize(rawURL)
		}
	}()

	// The deadline context doubles as cancellation for the losing
	// lookup: when the timer wins, the in-flight call is torn down
	// instead of left running with its result discarded.
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make(chan lookupResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				results <- lookupResult{err: fmt.Errorf("lookup panicked: %v", rec)}
			}
		}()
		raw, err := r.client.Lookup(lookupCtx, rawURL)
		results <- lookupResult{raw: raw, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			r.logger.Warn("metadata lookup failed", "url", rawURL, "error", res.err)
			return fallback.Synthesize(rawURL)
		}
		return r.normalize(rawURL, res.raw)
	case <-lookupCtx.Done():
		r.logger.Warn("metadata lookup deadline exceeded",
			"url", rawURL,
			"timeout", r.timeout,
		)
		return fallback.Synthesize(rawURL)
	}
}

// payload is the loosely typed shape of the lookup response. Missing
// and empty fields are equivalent; both take the documented default.
type payload struct {
	Title          string            `json:"title"`
	Author         string            `json:"author"`
	Views          string            `json:"views"`
	Duration       string            `json:"duration"`
	Summary        string            `json:"summary"`
	EstimatedSizes map[string]string `json:"estimatedSizes"`
}

// normalize parses the raw lookup text and fills any gaps with the
// documented defaults. Unparsable payloads degrade to full fallback
// output.
func (r *Resolver) normalize(rawURL, raw string) domain.VideoMetadata {
	var p payload
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		r.logger.Warn("metadata payload unparsable", "url", rawURL, "error", err)
		return fallback.Synthesize(rawURL)
	}

	return domain.VideoMetadata{
		Title:          orDefault(p.Title, DefaultTitle),
		Author:         orDefault(p.Author, DefaultAuthor),
		Views:          orDefault(p.Views, DefaultViews),
		Duration:       orDefault(p.Duration, DefaultDuration),
		Summary:        orDefault(p.Summary, DefaultSummary),
		EstimatedSizes: mergeSizes(p.EstimatedSizes),
	}
}

// mergeSizes fills a possibly partial size map key-wise over the fixed
// fallback table: provided quality keys are kept verbatim, missing ones
// take the table value, unknown keys are dropped.
func mergeSizes(provided map[string]string) map[string]string {
	sizes := fallback.SizeTable()
	for _, key := range domain.QualityKeys {
		if v, ok := provided[key]; ok && v != "" {
			sizes[key] = v
		}
	}
	return sizes
}

// stripFences removes a surrounding markdown code block, which some
// models emit around JSON even when asked not to.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
