package checkout

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkshop/catalogo/internal/paymentprovider"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) ListCustomersByEmail(ctx context.Context, email string) ([]paymentprovider.Customer, error) {
	args := m.Called(ctx, email)
	customers, _ := args.Get(0).([]paymentprovider.Customer)
	return customers, args.Error(1)
}

func (m *ProviderMock) CreateCheckoutSession(ctx context.Context, params paymentprovider.CreateCheckoutSessionParams) (*paymentprovider.CheckoutSession, error) {
	args := m.Called(ctx, params)
	session, _ := args.Get(0).(*paymentprovider.CheckoutSession)
	return session, args.Error(1)
}

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) UpsertProvisionalSubscriber(ctx context.Context, email, userUID string) error {
	args := m.Called(ctx, email, userUID)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newService(provider *ProviderMock, repo *RepoMock) *Service {
	return New(provider, repo, Config{
		PriceAmount:    1990,
		PriceCurrency:  "brl",
		AllowedOrigins: []string{"https://linkshop.app", "http://localhost:5173"},
	}, newNoopLogger())
}

func TestStart_RejectsBeforeAnyProviderCall(t *testing.T) {
	tests := []struct {
		name    string
		userUID string
		email   string
		origin  string
		wantErr error
	}{
		{"missing user", "", "ana@example.com", "https://linkshop.app", ErrMissingUser},
		{"empty email", "uid-1", "", "https://linkshop.app", ErrInvalidEmail},
		{"malformed email", "uid-1", "not-an-email", "https://linkshop.app", ErrInvalidEmail},
		{"unknown origin", "uid-1", "ana@example.com", "https://evil.example.com", ErrInvalidOrigin},
		{"empty origin", "uid-1", "ana@example.com", "", ErrInvalidOrigin},
		{"origin with trailing slash", "uid-1", "ana@example.com", "https://linkshop.app/", ErrInvalidOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := new(ProviderMock)
			repo := new(RepoMock)
			svc := newService(provider, repo)

			_, err := svc.Start(context.Background(), tt.userUID, tt.email, tt.origin)
			assert.ErrorIs(t, err, tt.wantErr)

			// Rejected requests never reach the processor or storage.
			provider.AssertNotCalled(t, "ListCustomersByEmail")
			provider.AssertNotCalled(t, "CreateCheckoutSession")
			repo.AssertNotCalled(t, "UpsertProvisionalSubscriber")
		})
	}
}

func TestStart_CreatesSessionForAllowedOrigin(t *testing.T) {
	provider := new(ProviderMock)
	repo := new(RepoMock)
	svc := newService(provider, repo)

	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return([]paymentprovider.Customer{{ID: "cus_123"}}, nil).Once()
	repo.On("UpsertProvisionalSubscriber", mock.Anything, "ana@example.com", "uid-1").
		Return(nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentprovider.CreateCheckoutSessionParams) bool {
		return p.CustomerID == "cus_123" &&
			p.UnitAmount == 1990 &&
			p.Currency == "brl" &&
			p.SuccessURL == "https://linkshop.app/dashboard?success=true" &&
			p.CancelURL == "https://linkshop.app/dashboard?canceled=true" &&
			p.Metadata["userId"] == "uid-1"
	})).Return(&paymentprovider.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil).Once()

	url, err := svc.Start(context.Background(), "uid-1", "Ana@Example.com ", "https://linkshop.app")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_1", url)

	provider.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestStart_NewCustomerCheckoutByEmail(t *testing.T) {
	provider := new(ProviderMock)
	repo := new(RepoMock)
	svc := newService(provider, repo)

	provider.On("ListCustomersByEmail", mock.Anything, "bob@example.com").
		Return([]paymentprovider.Customer{}, nil).Once()
	repo.On("UpsertProvisionalSubscriber", mock.Anything, "bob@example.com", "uid-2").
		Return(nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(p paymentprovider.CreateCheckoutSessionParams) bool {
		return p.CustomerID == "" && p.CustomerEmail == "bob@example.com"
	})).Return(&paymentprovider.CheckoutSession{ID: "cs_2", URL: "https://pay.example.com/cs_2"}, nil).Once()

	url, err := svc.Start(context.Background(), "uid-2", "bob@example.com", "http://localhost:5173")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_2", url)
}

func TestStart_ProvisionalRowWrittenBeforeSession(t *testing.T) {
	provider := new(ProviderMock)
	repo := new(RepoMock)
	svc := newService(provider, repo)

	var order []string
	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return([]paymentprovider.Customer{}, nil).Once()
	repo.On("UpsertProvisionalSubscriber", mock.Anything, "ana@example.com", "uid-1").
		Run(func(mock.Arguments) { order = append(order, "upsert") }).
		Return(nil).Once()
	provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { order = append(order, "session") }).
		Return(&paymentprovider.CheckoutSession{ID: "cs_3", URL: "https://pay.example.com/cs_3"}, nil).Once()

	_, err := svc.Start(context.Background(), "uid-1", "ana@example.com", "https://linkshop.app")
	require.NoError(t, err)
	assert.Equal(t, []string{"upsert", "session"}, order)
}

func TestStart_ProviderFailureIsUpstream(t *testing.T) {
	provider := new(ProviderMock)
	repo := new(RepoMock)
	svc := newService(provider, repo)

	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return(nil, assert.AnError).Once()

	_, err := svc.Start(context.Background(), "uid-1", "ana@example.com", "https://linkshop.app")
	assert.ErrorIs(t, err, ErrUpstream)
	repo.AssertNotCalled(t, "UpsertProvisionalSubscriber")
}
