package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vexlio/streambridge/internal/domain"
)

// MetadataResolver produces metadata for a media URL. It never fails;
// degraded lookups come back as synthesized metadata.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) domain.VideoMetadata
}

// ResolveHandler handles metadata resolution requests.
type ResolveHandler struct {
	resolver MetadataResolver
	logger   *slog.Logger
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(resolver MetadataResolver, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// ResolveRequest is the JSON request body for metadata resolution.
type ResolveRequest struct {
	URL string `json:"url"`
}

// Resolve handles POST /api/v1/resolve
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	meta := h.resolver.Resolve(r.Context(), req.URL)

	h.logger.Info("metadata resolved", "url", req.URL, "title", meta.Title)
	writeJSON(w, http.StatusOK, meta)
}
