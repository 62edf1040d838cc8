// Package httpapi wires the clip API routes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"viralcut/internal/httpapi/handlers"
	"viralcut/internal/httpkit"
	"viralcut/internal/pkg/middleware"
)

type Options struct {
	AllowedOrigins []string
	// ProcessTimeout bounds synchronous clip processing. Zero means none.
	ProcessTimeout time.Duration
}

func NewRouter(h *handlers.Handler, opt Options) http.Handler {
	log := h.Log()
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: opt.AllowedOrigins,
		AllowedMethods: []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAgeSeconds:  600,
	}))

	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- CLIPS ----
	r.Post("/api/upload", wrap(h.Upload))
	r.Post("/api/import-url", wrap(h.ImportURL))
	r.With(middleware.Deadline(opt.ProcessTimeout)).Post("/api/process-clips", wrap(h.ProcessClips))

	// ---- BATCHES ----
	r.Post("/api/batches", wrap(h.PostBatch))
	r.Get("/api/batches/{batchId}", wrap(h.GetBatch))

	// ---- OUTPUTS ----
	r.Get("/generated/*", wrap(h.Generated))
	r.Head("/generated/*", wrap(h.Generated))

	return r
}
