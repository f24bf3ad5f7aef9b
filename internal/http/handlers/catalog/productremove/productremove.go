// Package productremove implements the HTTP handler that removes a product
// from a catalog referenced by its edit link. Removing an id that is not in
// the catalog is a no-op and still answers OK.
package productremove

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
	"github.com/linkshop/catalogo/internal/services/catalog"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// Service describes the product removal business logic.
type Service interface {
	RemoveProduct(ctx context.Context, catalogID, productID string) error
}

// Handler handles product removal requests.
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
// @Summary Remove a product
// @Description Removes a product from the catalog behind the edit link. Unknown product ids are ignored.
// @Tags Catalog
// @Produce  json
// @Param id path string true "Catalog id"
// @Param productId path string true "Product id"
// @Success 200 {object} map[string]any "Product removed"
// @Failure 404 {object} response.ErrorResponse "Catalog not found"
// @Failure 409 {object} response.ErrorResponse "Concurrent modification"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /catalogo/{id}/products/{productId} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.productremove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	catalogID := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productId")

	if err := h.service.RemoveProduct(r.Context(), catalogID, productID); err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			log.Info("catalog not found", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("catalog not found"))
		case errors.Is(err, repository.ErrVersionConflict):
			log.Info("concurrent catalog modification", slog.String("catalog_id", catalogID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("catalog was modified concurrently, reload and retry"))
		default:
			log.Error("failed to remove product", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not remove product"))
		}
		return
	}

	log.Info("product removed", slog.String("catalog_id", catalogID), slog.String("product_id", productID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"message": "product removed",
	}))
}
