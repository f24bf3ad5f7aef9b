package entitlement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linkshop/catalogo/internal/models"
	"github.com/linkshop/catalogo/internal/paymentprovider"
	"github.com/linkshop/catalogo/internal/storage/repository"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetSubscriberByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	args := m.Called(ctx, email)
	sub, _ := args.Get(0).(*models.Subscriber)
	return sub, args.Error(1)
}

func (m *RepoMock) GetSubscriberByCustomerID(ctx context.Context, customerID string) (*models.Subscriber, error) {
	args := m.Called(ctx, customerID)
	sub, _ := args.Get(0).(*models.Subscriber)
	return sub, args.Error(1)
}

func (m *RepoMock) UpsertSubscriber(ctx context.Context, sub models.Subscriber) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *RepoMock) MarkSubscriberExpired(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) ListCustomersByEmail(ctx context.Context, email string) ([]paymentprovider.Customer, error) {
	args := m.Called(ctx, email)
	customers, _ := args.Get(0).([]paymentprovider.Customer)
	return customers, args.Error(1)
}

func (m *ProviderMock) ListActiveSubscriptions(ctx context.Context, customerID string) ([]paymentprovider.Subscription, error) {
	args := m.Called(ctx, customerID)
	subs, _ := args.Get(0).([]paymentprovider.Subscription)
	return subs, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	args := m.Called(routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestCheckStatus_RejectsMalformedEmail(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	for _, email := range []string{"", "   ", "not-an-email", "a@"} {
		_, err := svc.CheckStatus(context.Background(), email, "uid-1")
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
	}

	// No storage or network side effect before validation.
	repo.AssertNotCalled(t, "GetSubscriberByEmail")
	provider.AssertNotCalled(t, "ListCustomersByEmail")
}

func TestCheckStatus_AllowlistGrantsWithoutProvider(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, []string{"Founder@Example.com"}, newNoopLogger())

	repo.On("UpsertSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.Email == "founder@example.com" && sub.Subscribed
	})).Return(nil).Once()

	// Case-insensitive match against the configured address.
	status, err := svc.CheckStatus(context.Background(), "FOUNDER@example.COM", "uid-1")
	require.NoError(t, err)
	assert.True(t, status.Subscribed)
	require.NotNil(t, status.SubscriptionEnd)
	assert.WithinDuration(t, time.Now().AddDate(1, 0, 0), *status.SubscriptionEnd, time.Minute)

	provider.AssertNotCalled(t, "ListCustomersByEmail")
	repo.AssertExpectations(t)
}

func TestCheckStatus_StoredActiveRowSkipsProvider(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	end := time.Now().Add(10 * 24 * time.Hour)
	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(&models.Subscriber{Email: "ana@example.com", Subscribed: true, SubscriptionEnd: &end}, nil).Once()

	status, err := svc.CheckStatus(context.Background(), "ana@example.com", "uid-1")
	require.NoError(t, err)
	assert.True(t, status.Subscribed)

	provider.AssertNotCalled(t, "ListCustomersByEmail")
	repo.AssertExpectations(t)
}

func TestCheckStatus_LazyExpiryPersistsFlip(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	end := time.Now().Add(-time.Hour)
	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(&models.Subscriber{Email: "ana@example.com", Subscribed: true, SubscriptionEnd: &end}, nil).Once()
	repo.On("MarkSubscriberExpired", mock.Anything, "ana@example.com").Return(nil).Once()

	status, err := svc.CheckStatus(context.Background(), "ana@example.com", "uid-1")
	require.NoError(t, err)
	assert.False(t, status.Subscribed)

	provider.AssertNotCalled(t, "ListCustomersByEmail")
	repo.AssertExpectations(t)
}

func TestCheckStatus_UnknownEmailReconcilesToFree(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(nil, repository.ErrNotFound).Once()
	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return([]paymentprovider.Customer{}, nil).Once()
	repo.On("UpsertSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.Email == "ana@example.com" && !sub.Subscribed
	})).Return(nil).Once()

	status, err := svc.CheckStatus(context.Background(), "ana@example.com", "uid-1")
	require.NoError(t, err)
	assert.False(t, status.Subscribed)

	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestCheckStatus_ActiveProviderSubscriptionIsPersisted(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	periodEnd := time.Now().Add(25 * 24 * time.Hour).Unix()

	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(nil, repository.ErrNotFound).Once()
	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return([]paymentprovider.Customer{{ID: "cus_123", Email: "ana@example.com"}}, nil).Once()
	provider.On("ListActiveSubscriptions", mock.Anything, "cus_123").
		Return([]paymentprovider.Subscription{{ID: "sub_1", CurrentPeriodEnd: periodEnd}}, nil).Once()
	repo.On("UpsertSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.Subscribed && sub.StripeCustomerID == "cus_123" &&
			sub.SubscriptionEnd != nil && sub.SubscriptionEnd.Unix() == periodEnd
	})).Return(nil).Once()

	status, err := svc.CheckStatus(context.Background(), "ana@example.com", "uid-1")
	require.NoError(t, err)
	assert.True(t, status.Subscribed)
	assert.Equal(t, periodEnd, status.SubscriptionEnd.Unix())

	repo.AssertExpectations(t)
	provider.AssertExpectations(t)
}

func TestCheckStatus_ProviderOutageIsUpstreamError(t *testing.T) {
	repo := new(RepoMock)
	provider := new(ProviderMock)
	svc := New(repo, provider, nil, nil, newNoopLogger())

	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(nil, repository.ErrNotFound).Once()
	provider.On("ListCustomersByEmail", mock.Anything, "ana@example.com").
		Return(nil, assert.AnError).Once()

	_, err := svc.CheckStatus(context.Background(), "ana@example.com", "uid-1")
	assert.ErrorIs(t, err, ErrUpstream)

	repo.AssertNotCalled(t, "UpsertSubscriber")
}

func TestEntitled_MissingRowMeansFreeTier(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(ProviderMock), nil, nil, newNoopLogger())

	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(nil, repository.ErrNotFound).Once()

	entitled, err := svc.Entitled(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, entitled)
}

func TestEntitled_LapsedRowExpiresInPlace(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(ProviderMock), nil, nil, newNoopLogger())

	end := time.Now().Add(-time.Minute)
	repo.On("GetSubscriberByEmail", mock.Anything, "ana@example.com").
		Return(&models.Subscriber{Email: "ana@example.com", Subscribed: true, SubscriptionEnd: &end}, nil).Once()
	repo.On("MarkSubscriberExpired", mock.Anything, "ana@example.com").Return(nil).Once()

	entitled, err := svc.Entitled(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, entitled)
	repo.AssertExpectations(t)
}

func TestApplyCheckoutCompleted_PublishesActivation(t *testing.T) {
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	svc := New(repo, new(ProviderMock), publisher, nil, newNoopLogger())

	repo.On("UpsertSubscriber", mock.Anything, mock.MatchedBy(func(sub models.Subscriber) bool {
		return sub.Email == "ana@example.com" && sub.Subscribed && sub.StripeCustomerID == "cus_123"
	})).Return(nil).Once()
	publisher.On("Publish", "activated", mock.AnythingOfType("entitlement.ActivationEvent")).
		Return(nil).Once()

	err := svc.ApplyCheckoutCompleted(context.Background(), "Ana@Example.com", "uid-1", "cus_123")
	require.NoError(t, err)

	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestApplySubscriptionDeleted_UnknownCustomerIgnored(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(ProviderMock), nil, nil, newNoopLogger())

	repo.On("GetSubscriberByCustomerID", mock.Anything, "cus_unknown").
		Return(nil, repository.ErrNotFound).Once()

	err := svc.ApplySubscriptionDeleted(context.Background(), "cus_unknown")
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "MarkSubscriberExpired")
}

func TestApplySubscriptionDeleted_ExpiresStoredSubscriber(t *testing.T) {
	repo := new(RepoMock)
	svc := New(repo, new(ProviderMock), nil, nil, newNoopLogger())

	repo.On("GetSubscriberByCustomerID", mock.Anything, "cus_123").
		Return(&models.Subscriber{Email: "ana@example.com", StripeCustomerID: "cus_123"}, nil).Once()
	repo.On("MarkSubscriberExpired", mock.Anything, "ana@example.com").Return(nil).Once()

	err := svc.ApplySubscriptionDeleted(context.Background(), "cus_123")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}
