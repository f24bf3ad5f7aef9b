// Package productadd implements the HTTP handler that appends a product to a
// catalog referenced by its edit link.
//
// The free plan caps a catalog at one product; hitting the cap answers 403
// with an upsell message. A concurrent save of the same catalog loses with
// 409 and should be retried on fresh state.
package productadd

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

// Service describes the product creation business logic.
type Service interface {
	AddProduct(ctx context.Context, catalogID string, draft models.DummyProduct) (*models.Product, error)
}

// Handler handles product creation requests.
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
// @Summary Add a product to a catalog
// @Description Appends a product to the catalog behind the edit link. Free accounts are limited to one product.
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path string true "Catalog id"
// @Param request body models.DummyProduct true "Product data"
// @Success 200 {object} map[string]any "Created product"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON"
// @Failure 403 {object} response.ErrorResponse "Free plan product limit"
// @Failure 404 {object} response.ErrorResponse "Catalog not found"
// @Failure 409 {object} response.ErrorResponse "Concurrent modification"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /catalogo/{id}/products [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.productadd"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	catalogID := chi.URLParam(r, "id")

	var req models.DummyProduct
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("name", req.Name))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	product, err := h.service.AddProduct(r.Context(), catalogID, req)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Info("catalog not found", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("catalog not found"))
		case errors.Is(err, catalog.ErrProductLimit):
			log.Info("free plan limit reached", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("free plan allows only 1 product, upgrade to premium for unlimited products"))
		case errors.Is(err, repository.ErrVersionConflict):
			log.Info("concurrent catalog modification", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("catalog was modified concurrently, reload and retry"))
		default:
			log.Error("failed to add product", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not add product"))
		}
		return
	}

	log.Info("product added", slog.String("catalog_id", catalogID), slog.String("product_id", product.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"product": product,
	}))
}
