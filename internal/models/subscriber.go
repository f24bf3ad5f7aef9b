package models

import "time"

// Subscriber is the persisted entitlement record, keyed by account e-mail.
// It mirrors the state of the payment processor and is updated by the
// entitlement reconciler every time premium status is checked.
//
// Invariant: Subscribed == true implies SubscriptionEnd is nil or in the
// future. The reconciler, not the processor, is responsible for flipping
// Subscribed to false once SubscriptionEnd passes.
type Subscriber struct {
	Email            string     // Account e-mail, primary key
	UserUID          string     // Account UID, may be empty for provisional rows
	StripeCustomerID string     // Customer id at the payment processor
	Subscribed       bool       // Current premium flag
	SubscriptionEnd  *time.Time // End of the paid period, nil when unknown
	SubscriptionTier string     // "premium" for paid rows, empty otherwise
	UpdatedAt        time.Time  // Last reconciliation timestamp
}
