// Package wallpaper implements the HTTP handler that sets the background
// wallpaper of a catalog referenced by its edit link.
//
// Wallpaper customization is a premium feature; free accounts get 403 with
// an upsell message. The image reference itself is checked by the catalog
// service before it is stored.
package wallpaper

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/linkshop/catalogo/internal/http/response"
	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/services/catalog"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// Request is the wallpaper input. The URL may be an http(s) link to an image
// or an inline data:image payload.
type Request struct {
	WallpaperURL string `json:"wallpaper_url" validate:"required"`
}

// Service describes the wallpaper business logic.
type Service interface {
	SetWallpaper(ctx context.Context, catalogID, url string) error
}

// Handler handles wallpaper update requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler with the given logger and catalog service.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Set the catalog wallpaper
// @Description Stores a new background wallpaper for the catalog behind the edit link. Premium only.
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path string true "Catalog id"
// @Param request body Request true "Wallpaper reference"
// @Success 200 {object} map[string]any "Wallpaper updated"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON"
// @Failure 403 {object} response.ErrorResponse "Premium required"
// @Failure 404 {object} response.ErrorResponse "Catalog not found"
// @Failure 409 {object} response.ErrorResponse "Concurrent modification"
// @Failure 422 {object} response.ErrorResponse "Invalid wallpaper reference"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /catalogo/{id}/wallpaper [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.wallpaper"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	catalogID := chi.URLParam(r, "id")

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded")

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	if err := h.service.SetWallpaper(r.Context(), catalogID, req.WallpaperURL); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Info("catalog not found", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("catalog not found"))
		case errors.Is(err, catalog.ErrPremiumRequired):
			log.Info("wallpaper requires premium", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("wallpaper customization requires a premium subscription"))
		case errors.Is(err, catalog.ErrInvalidWallpaper):
			log.Info("invalid wallpaper reference", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("wallpaper must reference an image"))
		case errors.Is(err, repository.ErrVersionConflict):
			log.Info("concurrent catalog modification", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("catalog was modified concurrently, reload and retry"))
		default:
			log.Error("failed to set wallpaper", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not set wallpaper"))
		}
		return
	}

	log.Info("wallpaper updated", slog.String("catalog_id", catalogID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "wallpaper updated",
	}))
}
