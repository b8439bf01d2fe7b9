package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/atelier/internal/studio"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *studio.Service, sseHandler http.Handler, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(logger))

	// Project snapshot and persistence.
	r.Get("/project", h.GetProject)
	r.Put("/project", h.UpdateProject)
	r.Post("/project/flush", h.FlushProject)
	r.Post("/project/migrate", h.MigrateProject)

	// Normalized views.
	r.Get("/pages/{pageId}/ir", h.PageIR)
	r.Get("/theme/ir", h.ThemeIR)

	// Catalog.
	r.Get("/catalog", h.Catalog)
	r.Get("/catalog/dependencies", h.Dependencies)
	r.Get("/catalog/missing", h.MissingBlocks)

	// Block search.
	r.Get("/blocks", h.BlocksByCategory)
	r.Get("/blocks/search", h.SearchBlocks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
