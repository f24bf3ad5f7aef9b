// Package mycatalog implements the HTTP handler that loads the catalog of
// the authenticated account, creating an empty one on first visit.
package mycatalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkshop/catalogo/internal/http/middlewarectx"
	"github.com/linkshop/catalogo/internal/http/response"
	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/models"
)

// Service describes the owner-catalog business logic.
type Service interface {
	LoadOwn(ctx context.Context, userUID string) (*models.Catalog, error)
}

// Handler handles requests for the caller's own catalog.
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
// @Summary Load the caller's catalog
// @Description Returns the catalog owned by the authenticated account, creating it on first access.
// @Tags Catalog
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Catalog"
// @Failure 401 {object} response.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /me/catalog [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.mycatalog"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("missing identity in request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	cat, err := h.service.LoadOwn(r.Context(), userUID)
	if err != nil {
		log.Error("failed to load own catalog", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not load catalog"))
		return
	}

	log.Info("own catalog loaded", slog.String("catalog_id", cat.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"catalog": cat,
	}))
}
