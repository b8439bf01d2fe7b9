package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/atelier/internal/apperr"
	"github.com/starford/atelier/internal/checksum"
	"github.com/starford/atelier/internal/project"
	"github.com/starford/atelier/internal/studio"
)

// maxProjectBody bounds a PUT /project body.
const maxProjectBody = 32 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *studio.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *studio.Service) *Handler {
	return &Handler{svc: svc}
}

// writeServiceError maps service errors to status codes.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNewerSchema):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetProject handles GET /api/project.
//
//	@Summary		Get the current project snapshot
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	project.Snapshot
//	@Success		304
//	@Router			/project [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Project()
	if err != nil {
		writeServiceError(w, "get project", err)
		return
	}
	sum, err := checksum.Document(snap)
	if err != nil {
		writeServiceError(w, "get project", err)
		return
	}
	etag := `"` + sum + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// UpdateProject handles PUT /api/project. The snapshot is validated and
// accepted immediately; it reaches disk on the next autosave or flush.
//
//	@Summary		Replace the project snapshot
//	@Tags			project
//	@Accept			json
//	@Produce		json
//	@Param			body	body		project.Snapshot	true	"Full snapshot"
//	@Success		202		{object}	project.Snapshot
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/project [put]
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProjectBody)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var snap project.Snapshot
	if err := dec.Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	accepted, err := h.svc.Update(&snap)
	if err != nil {
		writeServiceError(w, "update project", err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

// FlushProject handles POST /api/project/flush.
//
//	@Summary		Save pending edits now
//	@Tags			project
//	@Success		204	"Saved"
//	@Router			/project/flush [post]
func (h *Handler) FlushProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Flush(r.Context()); err != nil {
		writeServiceError(w, "flush project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MigrateProject handles POST /api/project/migrate.
//
//	@Summary		Migrate the project to the current schema version
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	migrate.Result
//	@Failure		409	{object}	errResponse
//	@Router			/project/migrate [post]
func (h *Handler) MigrateProject(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Migrate(r.Context())
	if err != nil {
		writeServiceError(w, "migrate project", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PageIR handles GET /api/pages/{pageId}/ir.
//
//	@Summary		Normalized page
//	@Tags			pages
//	@Produce		json
//	@Param			pageId	path		string	true	"Page id"
//	@Success		200		{object}	normalize.PageIR
//	@Failure		404		{object}	errResponse
//	@Router			/pages/{pageId}/ir [get]
func (h *Handler) PageIR(w http.ResponseWriter, r *http.Request) {
	ir, err := h.svc.PageIR(chi.URLParam(r, "pageId"))
	if err != nil {
		writeServiceError(w, "page ir", err)
		return
	}
	writeJSON(w, http.StatusOK, ir)
}

// ThemeIR handles GET /api/theme/ir.
//
//	@Summary		Normalized theme tokens
//	@Tags			theme
//	@Produce		json
//	@Success		200	{object}	normalize.ThemeIR
//	@Router			/theme/ir [get]
func (h *Handler) ThemeIR(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ThemeIR())
}

// Catalog handles GET /api/catalog.
//
//	@Summary		Merged block catalog with manifest errors
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	catalog.Result
//	@Router			/catalog [get]
func (h *Handler) Catalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}

// Dependencies handles GET /api/catalog/dependencies.
//
//	@Summary		Dependency pin, allow-list and conflict issues
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	DependenciesResponse
//	@Router			/catalog/dependencies [get]
func (h *Handler) Dependencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DependenciesResponse{Issues: h.svc.Dependencies()})
}

// MissingBlocks handles GET /api/catalog/missing.
//
//	@Summary		Block ids placed on pages but absent from the catalog
//	@Tags			catalog
//	@Produce		json
//	@Success		200	{object}	MissingBlocksResponse
//	@Router			/catalog/missing [get]
func (h *Handler) MissingBlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MissingBlocksResponse{Missing: h.svc.MissingBlocks()})
}

// SearchBlocks handles GET /api/blocks/search.
//
//	@Summary		Search blocks by id, name, category and tags
//	@Tags			blocks
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/blocks/search [get]
func (h *Handler) SearchBlocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.SearchBlocks(q, limit)
	if err != nil {
		slog.Error("search blocks failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// BlocksByCategory handles GET /api/blocks?category=.
//
//	@Summary		List blocks of one category
//	@Tags			blocks
//	@Produce		json
//	@Param			category	query		string	true	"Category"
//	@Success		200			{object}	BlocksResponse
//	@Failure		400			{object}	errResponse
//	@Router			/blocks [get]
func (h *Handler) BlocksByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'category' is required"))
		return
	}
	rows, err := h.svc.BlocksByCategory(category)
	if err != nil {
		slog.Error("list blocks failed", slog.String("category", category), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, BlocksResponse{Blocks: rows})
}
