// Package resolve implements the HTTP handler that loads the catalog behind
// a share link.
//
// A plain visit to an unknown id returns the sample catalog so the shared
// page never dead-ends; a visit with edit=true requires a real catalog and
// answers 404 on a miss, an edit link must never fabricate content.
package resolve

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkshop/catalogo/internal/http/response"
	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/services/catalog"
)

// Service describes the catalog resolution business logic.
type Service interface {
	Resolve(ctx context.Context, id string, editMode bool) (*models.Catalog, error)
}

// Handler handles share-link catalog requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler with the given logger and catalog service.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Load a catalog by share link
// @Description Returns the catalog behind the id. Unknown ids resolve to the sample catalog unless edit=true is set.
// @Tags Catalog
// @Produce  json
// @Param id path string true "Catalog id"
// @Param edit query bool false "Edit mode"
// @Success 200 {object} map[string]any "Catalog"
// @Failure 404 {object} response.ErrorResponse "Catalog not found in edit mode"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /catalogo/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.resolve"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id := chi.URLParam(r, "id")
	editMode := r.URL.Query().Get("edit") == "true"

	cat, err := h.service.Resolve(r.Context(), id, editMode)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Info("catalog not found for edit link", slog.String("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("catalog not found"))
		default:
			log.Error("failed to resolve catalog", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not load catalog"))
		}
		return
	}

	log.Info("catalog resolved", slog.String("id", id), slog.Bool("edit", editMode))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"catalog": cat,
	}))
}
