// Package productupdate implements the HTTP handler that patches a product
// inside a catalog referenced by its edit link. Empty fields of the patch
// leave the stored values untouched.
package productupdate

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
	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/services/catalog"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// Service describes the product update business logic.
type Service interface {
	UpdateProduct(ctx context.Context, catalogID, productID string, patch models.DummyProductPatch) (*models.Product, error)
}

// Handler handles product update requests.
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
// @Summary Update a product
// @Description Applies a partial update to a product of the catalog behind the edit link.
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path string true "Catalog id"
// @Param productId path string true "Product id"
// @Param request body models.DummyProductPatch true "Fields to update"
// @Success 200 {object} map[string]any "Updated product"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON"
// @Failure 404 {object} response.ErrorResponse "Catalog or product not found"
// @Failure 409 {object} response.ErrorResponse "Concurrent modification"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /catalogo/{id}/products/{productId} [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.productupdate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	catalogID := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productId")

	var req models.DummyProductPatch
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

	product, err := h.service.UpdateProduct(r.Context(), catalogID, productID, req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Info("catalog not found", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("catalog not found"))
		case errors.Is(err, catalog.ErrProductNotFound):
			log.Info("product not found", slog.String("product_id", productID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("product not found"))
		case errors.Is(err, repository.ErrVersionConflict):
			log.Info("concurrent catalog modification", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("catalog was modified concurrently, reload and retry"))
		default:
			log.Error("failed to update product", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update product"))
		}
		return
	}

	log.Info("product updated", slog.String("catalog_id", catalogID), slog.String("product_id", productID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"product": product,
	}))
}
