package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/index"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ListCollections handles GET /collections.
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.Collections()
	if err != nil {
		slog.Error("list collections failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collections": infos,
	})
}

// ListItems handles GET /collections/{name}/items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.Items(name, limit, offset)
	if err != nil {
		if errors.Is(err, apperr.ErrUnknownCollection) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
			return
		}
		slog.Error("list items failed", slog.String("collection", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if items == nil {
		items = []ItemListEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

// GetItem handles GET /collections/{name}/items/{slug}.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	slug := chi.URLParam(r, "slug")

	item, err := h.svc.Item(name, slug)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnknownCollection):
			writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		default:
			slog.Error("get item failed",
				slog.String("collection", name),
				slog.String("slug", slug),
				slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Search handles GET /search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	name := r.URL.Query().Get("collection")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(q, name, limit)
	if err != nil {
		if errors.Is(err, apperr.ErrUnknownCollection) {
			writeJSON(w, http.StatusNotFound, errorBody("unknown collection"))
			return
		}
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
