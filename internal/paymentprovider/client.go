// Package paymentprovider implements a thin client for the Stripe REST API.
// Only the three calls the service needs are covered: customer lookup,
// active-subscription lookup and hosted checkout session creation.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the Stripe API with a secret key.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a Stripe client for the given secret key.
func NewClient(secretKey string) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     "https://api.stripe.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(secretKey, baseURL string) *Client {
	c := NewClient(secretKey)
	c.apiURL = baseURL
	return c
}

// Stripe speaks form-encoded requests, not JSON.
func (c *Client) newRequest(ctx context.Context, method, path string, form url.Values) (*http.Request, error) {
	endpoint := c.apiURL + path
	var body *strings.Reader
	if method == http.MethodGet {
		if len(form) > 0 {
			endpoint += "?" + form.Encode()
		}
		body = strings.NewReader("")
	} else {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return req, nil
}

func do[T any](c *Client, req *http.Request) (*T, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomersByEmail returns up to one customer registered under email.
func (c *Client) ListCustomersByEmail(ctx context.Context, email string) ([]Customer, error) {
	const op = "paymentprovider.ListCustomersByEmail"
	form := url.Values{}
	form.Set("email", email)
	form.Set("limit", "1")

	req, err := c.newRequest(ctx, http.MethodGet, "/customers", form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	envelope, err := do[listEnvelope[Customer]](c, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return envelope.Data, nil
}

// ListActiveSubscriptions returns up to one active subscription of a customer.
func (c *Client) ListActiveSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	const op = "paymentprovider.ListActiveSubscriptions"
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("status", "active")
	form.Set("limit", "1")

	req, err := c.newRequest(ctx, http.MethodGet, "/subscriptions", form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	envelope, err := do[listEnvelope[Subscription]](c, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return envelope.Data, nil
}

// CreateCheckoutSession creates a hosted checkout session for a recurring
// monthly subscription and returns it, including the redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CreateCheckoutSessionParams) (*CheckoutSession, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	form := url.Values{}
	if params.CustomerID != "" {
		form.Set("customer", params.CustomerID)
	} else {
		form.Set("customer_email", params.CustomerEmail)
	}
	form.Set("mode", "subscription")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", params.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.UnitAmount, 10))
	form.Set("line_items[0][price_data][recurring][interval]", "month")
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	if params.ProductDescription != "" {
		form.Set("line_items[0][price_data][product_data][description]", params.ProductDescription)
	}
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	for k, v := range params.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/checkout/sessions", form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session, err := do[CheckoutSession](c, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("%s: session url is empty", op)
	}
	return session, nil
}
