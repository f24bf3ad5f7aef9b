package paymentprovider

// Customer is the subset of the Stripe customer object the service reads.
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Subscription is the subset of the Stripe subscription object the service
// reads. CurrentPeriodEnd is a unix timestamp.
type Subscription struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// CheckoutSession is the hosted checkout session created for an upgrade.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// listEnvelope is the common shape of Stripe list endpoints.
type listEnvelope[T any] struct {
	Data    []T  `json:"data"`
	HasMore bool `json:"has_more"`
}

// CreateCheckoutSessionParams configures a hosted checkout session for the
// monthly premium subscription. Metadata is attached to the session so the
// webhook can attribute the payment to an account later.
type CreateCheckoutSessionParams struct {
	CustomerID         string
	CustomerEmail      string
	Currency           string
	UnitAmount         int64
	ProductName        string
	ProductDescription string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}
