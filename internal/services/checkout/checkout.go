// Package checkout starts hosted payment-processor checkout sessions for
// premium upgrades.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator"

	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/paymentprovider"
)

// ErrInvalidEmail is returned before any processor call on a malformed
// e-mail.
var ErrInvalidEmail = errors.New("invalid email")

// ErrMissingUser is returned when checkout is attempted without an
// authenticated account.
var ErrMissingUser = errors.New("user id is required")

// ErrInvalidOrigin is returned when the declared origin is not in the
// configured allow-list. Sessions must not be created for untrusted
// embedding contexts.
var ErrInvalidOrigin = errors.New("invalid request origin")

// ErrUpstream is returned when the processor rejects or cannot be reached.
// The caller gets no URL; checkout fails closed.
var ErrUpstream = errors.New("payment provider unavailable")

// ProviderClient is the slice of the processor API used for checkout.
type ProviderClient interface {
	ListCustomersByEmail(ctx context.Context, email string) ([]paymentprovider.Customer, error)
	CreateCheckoutSession(ctx context.Context, params paymentprovider.CreateCheckoutSessionParams) (*paymentprovider.CheckoutSession, error)
}

// SubscriberRepository records the provisional email-to-account mapping
// before the browser is redirected away.
type SubscriberRepository interface {
	UpsertProvisionalSubscriber(ctx context.Context, email, userUID string) error
}

// Config carries the pricing and origin settings of the checkout flow.
type Config struct {
	PriceAmount    int64
	PriceCurrency  string
	AllowedOrigins []string
}

// Service implements the checkout initiator.
type Service struct {
	provider ProviderClient
	repo     SubscriberRepository
	cfg      Config
	origins  map[string]struct{}
	validate *validator.Validate
	log      *slog.Logger
}

// New creates the checkout service.
func New(provider ProviderClient, repo SubscriberRepository, cfg Config, log *slog.Logger) *Service {
	origins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Service{
		provider: provider,
		repo:     repo,
		cfg:      cfg,
		origins:  origins,
		validate: validator.New(),
		log:      log,
	}
}

// Start validates the request, creates a hosted checkout session for the
// monthly premium subscription and returns its redirect URL. The provisional
// subscriber row is written before returning so a webhook firing immediately
// after payment always finds a row to update.
func (s *Service) Start(ctx context.Context, userUID, email, origin string) (string, error) {
	const op = "checkout.Start"

	if userUID == "" {
		return "", fmt.Errorf("%s: %w", op, ErrMissingUser)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}
	if _, ok := s.origins[origin]; !ok {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidOrigin)
	}

	customers, err := s.provider.ListCustomersByEmail(ctx, email)
	if err != nil {
		s.log.Error("customer lookup failed", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrUpstream)
	}
	var customerID string
	if len(customers) > 0 {
		customerID = customers[0].ID
	}

	if err := s.repo.UpsertProvisionalSubscriber(ctx, email, userUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, paymentprovider.CreateCheckoutSessionParams{
		CustomerID:         customerID,
		CustomerEmail:      email,
		Currency:           s.cfg.PriceCurrency,
		UnitAmount:         s.cfg.PriceAmount,
		ProductName:        "Premium Subscription",
		ProductDescription: "Acesso a todas as funcionalidades premium",
		SuccessURL:         origin + "/dashboard?success=true",
		CancelURL:          origin + "/dashboard?canceled=true",
		Metadata:           map[string]string{"userId": userUID},
	})
	if err != nil {
		s.log.Error("failed to create checkout session", sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, ErrUpstream)
	}

	s.log.Info("checkout session created", slog.String("session_id", session.ID))
	return session.URL, nil
}
