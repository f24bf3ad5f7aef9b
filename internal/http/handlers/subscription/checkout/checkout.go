// Package checkout implements the HTTP handler that starts a premium
// checkout session.
//
// The browser Origin header selects where the payment provider redirects
// after checkout, so it is matched against the configured allowlist before
// any provider call. On success the client receives the hosted payment page
// URL and navigates there itself.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/linkshop/catalogo/internal/http/middlewarectx"
	"github.com/linkshop/catalogo/internal/http/response"
	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/services/checkout"
)

// Service describes the checkout business logic.
type Service interface {
	Start(ctx context.Context, userUID, email, origin string) (string, error)
}

// Handler handles checkout session requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler with the given logger and checkout service.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Start a premium checkout session
// @Description Creates a hosted checkout session with the payment provider and returns its URL.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Checkout session URL"
// @Failure 401 {object} response.ErrorResponse "Missing or invalid token"
// @Failure 403 {object} response.ErrorResponse "Origin not allowed"
// @Failure 422 {object} response.ErrorResponse "Malformed account e-mail"
// @Failure 500 {object} response.ErrorResponse "Payment provider unavailable"
// @Router /subscription/checkout [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	email, ok := r.Context().Value(middlewarectx.Email).(string)
	userUID, okUID := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || !okUID || email == "" {
		log.Error("missing identity in request context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	origin := r.Header.Get("Origin")

	url, err := h.service.Start(r.Context(), userUID, email, origin)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrInvalidEmail):
			log.Error("invalid account email", slog.String("email", email))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("invalid email"))
		case errors.Is(err, checkout.ErrMissingUser):
			log.Error("missing user id")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("unauthorized"))
		case errors.Is(err, checkout.ErrInvalidOrigin):
			log.Error("origin not allowed", slog.String("origin", origin))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("origin not allowed"))
		default:
			log.Error("failed to start checkout", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not start checkout"))
		}
		return
	}

	log.Info("checkout session created", slog.String("email", email))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"url": url,
	}))
}
