package catalogo

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/linkshop/catalogo/internal/config"
	"github.com/linkshop/catalogo/internal/http/handlers/auth/login"
	"github.com/linkshop/catalogo/internal/http/handlers/auth/register"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/mycatalog"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/productadd"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/productremove"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/productupdate"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/resolve"
	"github.com/linkshop/catalogo/internal/http/handlers/catalog/wallpaper"
	"github.com/linkshop/catalogo/internal/http/handlers/health"
	"github.com/linkshop/catalogo/internal/http/handlers/subscription/check"
	"github.com/linkshop/catalogo/internal/http/handlers/subscription/checkout"
	"github.com/linkshop/catalogo/internal/http/handlers/subscription/webhook"
	"github.com/linkshop/catalogo/internal/http/middlewarectx"
	authservice "github.com/linkshop/catalogo/internal/services/auth"
	catalogservice "github.com/linkshop/catalogo/internal/services/catalog"
	checkoutservice "github.com/linkshop/catalogo/internal/services/checkout"
	entitlementservice "github.com/linkshop/catalogo/internal/services/entitlement"
)

// RegisterRoutes registers all routes of the application.
//
// Catalog mutation routes deliberately carry no session middleware: the edit
// link is the capability, whoever holds it may edit. They sit behind the
// rate limiter instead.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config,
	authService *authservice.Service,
	entitlementService *entitlementservice.Service,
	checkoutService *checkoutservice.Service,
	catalogService *catalogservice.Service,
) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.New(logger).ServeHTTP)
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)

		// Session-protected endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authService, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/subscription/check", check.New(logger, entitlementService).ServeHTTP)
			r.Post("/subscription/checkout", checkout.New(logger, checkoutService).ServeHTTP)
			r.Get("/me/catalog", mycatalog.New(logger, catalogService).ServeHTTP)
		})

		// Capability-URL endpoints: the catalog id in the path is the
		// credential.
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger))
			r.Get("/catalogo/{id}", resolve.New(logger, catalogService).ServeHTTP)
			r.Post("/catalogo/{id}/products", productadd.New(logger, catalogService).ServeHTTP)
			r.Patch("/catalogo/{id}/products/{productId}", productupdate.New(logger, catalogService).ServeHTTP)
			r.Delete("/catalogo/{id}/products/{productId}", productremove.New(logger, catalogService).ServeHTTP)
			r.Put("/catalogo/{id}/wallpaper", wallpaper.New(logger, catalogService).ServeHTTP)
		})

		// Webhook endpoint, authenticated by its signature.
		r.Post("/subscription/webhook", webhook.New(logger, entitlementService, cfg.WebhookSecret).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
