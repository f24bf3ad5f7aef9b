// Package check implements the HTTP handler that reports the premium status
// of the authenticated account.
//
// The identity comes from the session token, never from the request body, so
// a user can only query their own entitlement. A payment-provider outage is
// reported as 500: callers must retry, not assume "not premium".
package check

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
	"github.com/linkshop/catalogo/internal/services/entitlement"
)

// Service describes the entitlement business logic.
type Service interface {
	CheckStatus(ctx context.Context, email, userUID string) (*entitlement.Status, error)
}

// Handler handles premium status requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler with the given logger and entitlement service.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Premium status of the current account
// @Description Returns whether the authenticated account has an active premium subscription and when it ends.
// @Tags Subscription
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Premium status"
// @Failure 401 {object} response.ErrorResponse "Missing or invalid token"
// @Failure 422 {object} response.ErrorResponse "Malformed account e-mail"
// @Failure 500 {object} response.ErrorResponse "Payment provider unavailable"
// @Router /subscription/check [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.check"

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

	status, err := h.service.CheckStatus(r.Context(), email, userUID)
	if err != nil {
		switch {
		case errors.Is(err, entitlement.ErrInvalidEmail):
			log.Error("invalid account email", slog.String("email", email))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("invalid email"))
		default:
			log.Error("failed to check subscription", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not check subscription"))
		}
		return
	}

	log.Info("subscription checked", slog.Bool("subscribed", status.Subscribed))
	render.JSON(w, r, response.OKWithData(status))
}
