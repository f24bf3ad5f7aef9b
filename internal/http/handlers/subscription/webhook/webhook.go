// Package webhook implements the HTTP handler for payment-provider webhook
// events.
//
// The provider signs each delivery with HMAC-SHA256 over "<timestamp>.<body>"
// and sends the result in the Stripe-Signature header as "t=...,v1=...".
// Deliveries with a missing or wrong signature are rejected before any state
// change. Only checkout completion and subscription cancellation are
// processed, everything else is acknowledged and ignored.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/linkshop/catalogo/internal/lib/sl"
)

// Service describes the entitlement transitions driven by webhook events.
type Service interface {
	ApplyCheckoutCompleted(ctx context.Context, email, userUID, customerID string) error
	ApplySubscriptionDeleted(ctx context.Context, customerID string) error
}

// Handler handles signed webhook deliveries.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New creates a Handler with the given logger, service and signing secret.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

// Event is the envelope of a webhook delivery.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID              string            `json:"id"`
			Customer        string            `json:"customer"`
			CustomerEmail   string            `json:"customer_email"`
			CustomerDetails struct {
				Email string `json:"email"`
			} `json:"customer_details"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

const (
	checkoutSessionCompleted    = "checkout.session.completed"
	customerSubscriptionDeleted = "customer.subscription.deleted"
)

// verifySignature checks the "t=...,v1=..." signature header against an
// HMAC-SHA256 of "<timestamp>.<body>" keyed with the webhook secret.
func (h *Handler) verifySignature(body []byte, header string) bool {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}
	if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return true
		}
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" || !h.verifySignature(body, signature) {
		log.Error("invalid or missing webhook signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to unmarshal webhook event", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case checkoutSessionCompleted:
		email := event.Data.Object.CustomerDetails.Email
		if email == "" {
			email = event.Data.Object.CustomerEmail
		}
		userUID := event.Data.Object.Metadata["userId"]
		if err := h.service.ApplyCheckoutCompleted(r.Context(), email, userUID, event.Data.Object.Customer); err != nil {
			log.Error("failed to apply checkout completion", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	case customerSubscriptionDeleted:
		if err := h.service.ApplySubscriptionDeleted(r.Context(), event.Data.Object.Customer); err != nil {
			log.Error("failed to apply subscription cancellation", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	default:
		log.Info("ignored webhook event", slog.String("type", event.Type))
	}

	log.Info("webhook processed", slog.String("type", event.Type), slog.String("event_id", event.ID))
	w.WriteHeader(http.StatusOK)
}
