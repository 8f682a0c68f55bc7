package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/vexlio/streambridge/internal/domain"
	"github.com/vexlio/streambridge/internal/fallback"
)

// stubClient returns a fixed payload or error.
type stubClient struct {
	raw string
	err error
}

func (s *stubClient) Lookup(ctx context.Context, url string) (string, error) {
	return s.raw, s.err
}

// blockingClient never settles on its own; it only returns when the
// context is cancelled.
type blockingClient struct{}

func (b *blockingClient) Lookup(ctx context.Context, url string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// panickyClient panics on every lookup.
type panickyClient struct{}

func (p *panickyClient) Lookup(ctx context.Context, url string) (string, error) {
	panic("boom")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_FullPayloadPassedThroughUnmodified(t *testing.T) {
	raw := `{
		"title": "Rocket Launch Highlights",
		"author": "Space Agency",
		"views": "1,204,332",
		"duration": "12:45",
		"summary": "Full coverage of the launch.",
		"estimatedSizes": {
			"2160p": "2.1 GB",
			"1080p": "800 MB",
			"720p": "400 MB",
			"360p": "120 MB",
			"audio": "12 MB"
		}
	}`
	r := New(&stubClient{raw: raw}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), "https://example.com/launch")

	if got.Title != "Rocket Launch Highlights" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.Author != "Space Agency" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.Views != "1,204,332" {
		t.Errorf("Views = %q", got.Views)
	}
	if got.Duration != "12:45" {
		t.Errorf("Duration = %q", got.Duration)
	}
	if got.Summary != "Full coverage of the launch." {
		t.Errorf("Summary = %q", got.Summary)
	}
	want := map[string]string{
		"2160p": "2.1 GB", "1080p": "800 MB", "720p": "400 MB",
		"360p": "120 MB", "audio": "12 MB",
	}
	for k, v := range want {
		if got.EstimatedSizes[k] != v {
			t.Errorf("EstimatedSizes[%q] = %q, want %q", k, got.EstimatedSizes[k], v)
		}
	}
}

func TestResolve_PartialPayloadDefaultsAndMerges(t *testing.T) {
	// Missing author and two of five size keys.
	raw := `{
		"title": "Clip",
		"views": "88",
		"duration": "01:02",
		"summary": "A short clip.",
		"estimatedSizes": {
			"1080p": "333 MB",
			"720p": "150 MB",
			"audio": "5 MB"
		}
	}`
	r := New(&stubClient{raw: raw}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), "https://example.com/clip")

	if got.Author != DefaultAuthor {
		t.Errorf("Author = %q, want default %q", got.Author, DefaultAuthor)
	}
	// Provided values preserved verbatim.
	if got.Title != "Clip" || got.Views != "88" || got.Duration != "01:02" {
		t.Errorf("provided fields altered: %+v", got)
	}
	if got.EstimatedSizes["1080p"] != "333 MB" {
		t.Errorf("provided 1080p overwritten: %q", got.EstimatedSizes["1080p"])
	}
	if got.EstimatedSizes["720p"] != "150 MB" {
		t.Errorf("provided 720p overwritten: %q", got.EstimatedSizes["720p"])
	}
	if got.EstimatedSizes["audio"] != "5 MB" {
		t.Errorf("provided audio overwritten: %q", got.EstimatedSizes["audio"])
	}
	// Missing keys filled from the fixed table.
	table := fallback.SizeTable()
	if got.EstimatedSizes["2160p"] != table["2160p"] {
		t.Errorf("2160p = %q, want table default %q", got.EstimatedSizes["2160p"], table["2160p"])
	}
	if got.EstimatedSizes["360p"] != table["360p"] {
		t.Errorf("360p = %q, want table default %q", got.EstimatedSizes["360p"], table["360p"])
	}
}

func TestResolve_EmptyFieldsTakeDefaults(t *testing.T) {
	r := New(&stubClient{raw: `{"title":"","author":"  ","views":"","duration":"","summary":""}`}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), "https://example.com/x")

	if got.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", got.Title, DefaultTitle)
	}
	if got.Author != DefaultAuthor {
		t.Errorf("Author = %q, want %q", got.Author, DefaultAuthor)
	}
	if got.Views != DefaultViews {
		t.Errorf("Views = %q, want %q", got.Views, DefaultViews)
	}
	if got.Duration != DefaultDuration {
		t.Errorf("Duration = %q, want %q", got.Duration, DefaultDuration)
	}
	if got.Summary != DefaultSummary {
		t.Errorf("Summary = %q, want %q", got.Summary, DefaultSummary)
	}
	if !got.Complete() {
		t.Error("resolved metadata not fully populated")
	}
}

func TestResolve_FencedPayloadParsed(t *testing.T) {
	raw := "```json\n{\"title\":\"Fenced\"}\n```"
	r := New(&stubClient{raw: raw}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), "https://example.com/x")
	if got.Title != "Fenced" {
		t.Errorf("Title = %q, want %q", got.Title, "Fenced")
	}
}

func TestResolve_MalformedPayloadFallsBack(t *testing.T) {
	url := "https://www.youtube.com/watch?v=x"
	r := New(&stubClient{raw: "sorry, I could not find that video"}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), url)
	assertEqualMetadata(t, got, fallback.Synthesize(url))
}

func TestResolve_LookupErrorFallsBackImmediately(t *testing.T) {
	url := "https://vimeo.com/123"
	r := New(&stubClient{err: errors.New("service unavailable")}, 5*time.Second, discardLogger())

	start := time.Now()
	got := r.Resolve(context.Background(), url)
	elapsed := time.Since(start)

	assertEqualMetadata(t, got, fallback.Synthesize(url))
	if elapsed > time.Second {
		t.Errorf("error path waited %v, should not wait for the deadline", elapsed)
	}
}

func TestResolve_TimeoutFallsBackAfterDeadline(t *testing.T) {
	url := "https://example.com/v.mp4"
	timeout := 150 * time.Millisecond
	r := New(&blockingClient{}, timeout, discardLogger())

	start := time.Now()
	got := r.Resolve(context.Background(), url)
	elapsed := time.Since(start)

	assertEqualMetadata(t, got, fallback.Synthesize(url))
	if elapsed < timeout {
		t.Errorf("resolved after %v, before the %v deadline", elapsed, timeout)
	}
	if elapsed > timeout+2*time.Second {
		t.Errorf("resolved after %v, far beyond the %v deadline", elapsed, timeout)
	}
}

func TestResolve_PanicInLookupFallsBack(t *testing.T) {
	url := "https://example.com/panic"
	r := New(&panickyClient{}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), url)
	assertEqualMetadata(t, got, fallback.Synthesize(url))
}

func TestResolve_AlwaysFullyPopulated(t *testing.T) {
	clients := map[string]MetadataClient{
		"empty object":  &stubClient{raw: "{}"},
		"null sizes":    &stubClient{raw: `{"title":"T","estimatedSizes":null}`},
		"garbage":       &stubClient{raw: "<<<>>>"},
		"lookup error":  &stubClient{err: errors.New("no")},
		"unknown sizes": &stubClient{raw: `{"estimatedSizes":{"8k":"9 GB"}}`},
	}

	for name, client := range clients {
		t.Run(name, func(t *testing.T) {
			r := New(client, time.Second, discardLogger())
			got := r.Resolve(context.Background(), "https://example.com/a")
			if !got.Complete() {
				t.Errorf("metadata not fully populated: %+v", got)
			}
		})
	}
}

func TestResolve_UnknownSizeKeysDropped(t *testing.T) {
	r := New(&stubClient{raw: `{"estimatedSizes":{"8k":"9 GB","1080p":"1 MB"}}`}, time.Second, discardLogger())

	got := r.Resolve(context.Background(), "https://example.com/a")

	if _, ok := got.EstimatedSizes["8k"]; ok {
		t.Error("unknown quality key kept in merged sizes")
	}
	if got.EstimatedSizes["1080p"] != "1 MB" {
		t.Errorf("1080p = %q, want provided value", got.EstimatedSizes["1080p"])
	}
	if len(got.EstimatedSizes) != len(domain.QualityKeys) {
		t.Errorf("merged sizes has %d keys, want %d", len(got.EstimatedSizes), len(domain.QualityKeys))
	}
}

// assertEqualMetadata compares two metadata values field by field
// (structs with maps are not directly comparable).
func assertEqualMetadata(t *testing.T, got, want domain.VideoMetadata) {
	t.Helper()
	if got.Title != want.Title || got.Author != want.Author ||
		got.Views != want.Views || got.Duration != want.Duration ||
		got.Summary != want.Summary {
		t.Errorf("metadata fields = %+v, want %+v", got, want)
	}
	for _, key := range domain.QualityKeys {
		if got.EstimatedSizes[key] != want.EstimatedSizes[key] {
			t.Errorf("EstimatedSizes[%q] = %q, want %q", key, got.EstimatedSizes[key], want.EstimatedSizes[key])
		}
	}
}
