// Package entitlement implements the premium-entitlement store logic and the
// reconciler that keeps it in sync with the payment processor.
//
// Premium status is read through CheckStatus, which prefers the persisted
// subscriber row and falls back to the processor when the row is absent or
// lapsed. Expiry is lazy: the moment a read sees a subscription_end in the
// past the row is flipped to not-subscribed and persisted. There is no
// background sweep.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/linkshop/catalogo/internal/lib/sl"
	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/paymentprovider"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

// ErrInvalidEmail is returned before any storage or network side effect when
// the e-mail does not look like an address.
var ErrInvalidEmail = errors.New("invalid email")

// ErrUpstream is returned when the payment processor cannot be reached.
// Callers must surface it as a retryable failure, never as "not premium".
var ErrUpstream = errors.New("payment provider unavailable")

// Status is the reconciled premium state of one account.
type Status struct {
	Subscribed      bool       `json:"subscribed"`
	SubscriptionEnd *time.Time `json:"subscription_end"`
}

// SubscriberRepository is the persistence contract of the entitlement store.
type SubscriberRepository interface {
	GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error)
	GetSubscriberByCustomerID(ctx context.Context, customerID string) (*models.Subscriber, error)
	UpsertSubscriber(ctx context.Context, sub models.Subscriber) error
	MarkSubscriberExpired(ctx context.Context, email string) error
}

// ProviderClient is the slice of the payment-processor API the reconciler
// needs.
type ProviderClient interface {
	ListCustomersByEmail(ctx context.Context, email string) ([]paymentprovider.Customer, error)
	ListActiveSubscriptions(ctx context.Context, customerID string) ([]paymentprovider.Subscription, error)
}

// Publisher delivers entitlement events to the notification queue.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// ActivationEvent is published when an entitlement becomes active so the
// notification sender can confirm the upgrade by e-mail.
type ActivationEvent struct {
	Email           string    `json:"email"`
	SubscriptionEnd time.Time `json:"subscription_end"`
}

// Service implements the entitlement store and reconciler.
type Service struct {
	repo      SubscriberRepository
	provider  ProviderClient
	publisher Publisher
	allowlist map[string]struct{}
	validate  *validator.Validate
	log       *slog.Logger
}

// New creates the entitlement service. allowlist holds the e-mails granted a
// one-year entitlement without consulting the processor; publisher may be nil
// when no notification queue is configured.
func New(repo SubscriberRepository, provider ProviderClient, publisher Publisher, allowlist []string, log *slog.Logger) *Service {
	m := make(map[string]struct{}, len(allowlist))
	for _, email := range allowlist {
		m[strings.ToLower(email)] = struct{}{}
	}
	return &Service{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		allowlist: m,
		validate:  validator.New(),
		log:       log,
	}
}

// CheckStatus reports whether the account behind email currently holds a
// premium entitlement, reconciling the stored row with the processor when
// needed. userUID may be empty for accounts that checked out before
// registering.
func (s *Service) CheckStatus(ctx context.Context, email, userUID string) (*Status, error) {
	const op = "entitlement.CheckStatus"

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	if _, ok := s.allowlist[email]; ok {
		end := time.Now().AddDate(1, 0, 0)
		sub := models.Subscriber{
			Email:            email,
			UserUID:          userUID,
			Subscribed:       true,
			SubscriptionEnd:  &end,
			SubscriptionTier: "premium",
		}
		if err := s.repo.UpsertSubscriber(ctx, sub); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Status{Subscribed: true, SubscriptionEnd: &end}, nil
	}

	stored, err := s.repo.GetSubscriberByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stored != nil && stored.Subscribed {
		if stored.SubscriptionEnd != nil && stored.SubscriptionEnd.Before(time.Now()) {
			// Lazy expiry: persist the flip before reporting.
			if err := s.repo.MarkSubscriberExpired(ctx, email); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return &Status{Subscribed: false}, nil
		}
		return &Status{Subscribed: true, SubscriptionEnd: stored.SubscriptionEnd}, nil
	}

	return s.reconcileWithProvider(ctx, email, userUID)
}

func (s *Service) reconcileWithProvider(ctx context.Context, email, userUID string) (*Status, error) {
	const op = "entitlement.reconcileWithProvider"

	customers, err := s.provider.ListCustomersByEmail(ctx, email)
	if err != nil {
		s.log.Error("customer lookup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrUpstream)
	}
	if len(customers) == 0 {
		sub := models.Subscriber{Email: email, UserUID: userUID}
		if err := s.repo.UpsertSubscriber(ctx, sub); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &Status{Subscribed: false}, nil
	}

	customerID := customers[0].ID
	subscriptions, err := s.provider.ListActiveSubscriptions(ctx, customerID)
	if err != nil {
		s.log.Error("subscription lookup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrUpstream)
	}

	status := &Status{}
	sub := models.Subscriber{
		Email:            email,
		UserUID:          userUID,
		StripeCustomerID: customerID,
	}
	if len(subscriptions) > 0 {
		end := time.Unix(subscriptions[0].CurrentPeriodEnd, 0)
		status.Subscribed = true
		status.SubscriptionEnd = &end
		sub.Subscribed = true
		sub.SubscriptionEnd = &end
		sub.SubscriptionTier = "premium"
	}
	if err := s.repo.UpsertSubscriber(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return status, nil
}

// Entitled is the fast local gate used at write boundaries (product cap,
// wallpaper). It never talks to the processor: a missing row means free tier,
// a lapsed row is expired in place.
func (s *Service) Entitled(ctx context.Context, email string) (bool, error) {
	const op = "entitlement.Entitled"

	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.allowlist[email]; ok {
		return true, nil
	}

	stored, err := s.repo.GetSubscriberByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !stored.Subscribed {
		return false, nil
	}
	if stored.SubscriptionEnd != nil && stored.SubscriptionEnd.Before(time.Now()) {
		if err := s.repo.MarkSubscriberExpired(ctx, email); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return false, nil
	}
	return true, nil
}

// ApplyCheckoutCompleted records a finished checkout reported by the webhook.
// The one-month window is provisional; the next CheckStatus read reconciles
// the exact period end with the processor.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, email, userUID, customerID string) error {
	const op = "entitlement.ApplyCheckoutCompleted"

	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	end := time.Now().AddDate(0, 1, 0)
	sub := models.Subscriber{
		Email:            email,
		UserUID:          userUID,
		StripeCustomerID: customerID,
		Subscribed:       true,
		SubscriptionEnd:  &end,
		SubscriptionTier: "premium",
	}
	if err := s.repo.UpsertSubscriber(ctx, sub); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.publisher != nil {
		event := ActivationEvent{Email: email, SubscriptionEnd: end}
		if err := s.publisher.Publish("activated", event); err != nil {
			s.log.Warn("failed to publish activation event", sl.Err(err))
		}
	}
	return nil
}

// ApplySubscriptionDeleted records a cancellation reported by the webhook.
// A cancellation for a customer we never saw is ignored.
func (s *Service) ApplySubscriptionDeleted(ctx context.Context, customerID string) error {
	const op = "entitlement.ApplySubscriptionDeleted"

	stored, err := s.repo.GetSubscriberByCustomerID(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info("cancellation for unknown customer ignored", slog.String("customer_id", customerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.MarkSubscriberExpired(ctx, stored.Email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
