package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vexlio/streambridge/internal/api/handler"
	mw "github.com/vexlio/streambridge/internal/api/middleware"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	resolveHandler *handler.ResolveHandler,
	downloadHandler *handler.DownloadHandler,
	healthHandler *handler.HealthHandler,
	uiHandler *handler.UIHandler,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(mw.CORS)

	// Health endpoints
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Web UI
	r.Get("/", uiHandler.Index)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", healthHandler.Stats)

		r.Post("/resolve", resolveHandler.Resolve)

		r.Post("/downloads", downloadHandler.Submit)
		r.Get("/downloads", downloadHandler.List)
		r.Get("/downloads/{jobID}", downloadHandler.Get)
		r.Get("/downloads/{jobID}/file", downloadHandler.File)
	})

	return r
}
