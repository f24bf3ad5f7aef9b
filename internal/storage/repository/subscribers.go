package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linkshop/catalogo/internal/models"
)

// UpsertSubscriber inserts or updates the entitlement row keyed by e-mail.
// The whole row is replaced; updated_at is stamped server-side.
func (s *Storage) UpsertSubscriber(ctx context.Context, sub models.Subscriber) error {
	const op = "storage.UpsertSubscriber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscribers (email, user_uid, stripe_customer_id, subscribed,
			      subscription_end, subscription_tier, updated_at)
			  VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, now())
			  ON CONFLICT (email) DO UPDATE
			  SET user_uid = COALESCE(NULLIF($2, '')::uuid, subscribers.user_uid),
			      stripe_customer_id = COALESCE(NULLIF($3, ''), subscribers.stripe_customer_id),
			      subscribed = $4,
			      subscription_end = $5,
			      subscription_tier = $6,
			      updated_at = now()`
	_, err := s.DB.ExecContext(ctx, query,
		sub.Email, sub.UserUID, sub.StripeCustomerID, sub.Subscribed,
		sub.SubscriptionEnd, sub.SubscriptionTier)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpsertProvisionalSubscriber records the email to account mapping before a
// checkout redirect, without touching the premium flag of an existing row.
func (s *Storage) UpsertProvisionalSubscriber(ctx context.Context, email, userUID string) error {
	const op = "storage.UpsertProvisionalSubscriber"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscribers (email, user_uid, subscribed, updated_at)
			  VALUES ($1, NULLIF($2, '')::uuid, false, now())
			  ON CONFLICT (email) DO UPDATE
			  SET user_uid = COALESCE(NULLIF($2, '')::uuid, subscribers.user_uid),
			      updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, email, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetSubscriberByEmail returns the entitlement row for an e-mail.
func (s *Storage) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "storage.GetSubscriberByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT email, COALESCE(user_uid::text, ''), COALESCE(stripe_customer_id, ''),
			      subscribed, subscription_end, COALESCE(subscription_tier, ''), updated_at
			  FROM subscribers
			  WHERE email = $1`
	sub := &models.Subscriber{}
	var subscriptionEnd sql.NullTime
	row := s.DB.QueryRowContext(ctx, query, email)
	if err := row.Scan(&sub.Email, &sub.UserUID, &sub.StripeCustomerID,
		&sub.Subscribed, &subscriptionEnd, &sub.SubscriptionTier, &sub.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subscriptionEnd.Valid {
		sub.SubscriptionEnd = &subscriptionEnd.Time
	}
	return sub, nil
}

// GetSubscriberByCustomerID returns the entitlement row holding a payment
// processor customer id. Used by the webhook to attribute cancellations.
func (s *Storage) GetSubscriberByCustomerID(ctx context.Context, customerID string) (*models.Subscriber, error) {
	const op = "storage.GetSubscriberByCustomerID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT email, COALESCE(user_uid::text, ''), COALESCE(stripe_customer_id, ''),
			      subscribed, subscription_end, COALESCE(subscription_tier, ''), updated_at
			  FROM subscribers
			  WHERE stripe_customer_id = $1`
	sub := &models.Subscriber{}
	var subscriptionEnd sql.NullTime
	row := s.DB.QueryRowContext(ctx, query, customerID)
	if err := row.Scan(&sub.Email, &sub.UserUID, &sub.StripeCustomerID,
		&sub.Subscribed, &subscriptionEnd, &sub.SubscriptionTier, &sub.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if subscriptionEnd.Valid {
		sub.SubscriptionEnd = &subscriptionEnd.Time
	}
	return sub, nil
}

// MarkSubscriberExpired flips a lapsed entitlement to not-subscribed.
// Used by the reconciler's lazy expiry on read.
func (s *Storage) MarkSubscriberExpired(ctx context.Context, email string) error {
	const op = "storage.MarkSubscriberExpired"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscribers
			  SET subscribed = false,
			      subscription_tier = NULL,
			      updated_at = now()
			  WHERE email = $1`
	if _, err := s.DB.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
