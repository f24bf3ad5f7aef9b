package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkshop/catalogo/internal/models"
)

func TestStorage_RegisterAndGetUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	uid, err := storage.RegisterUser(context.Background(), models.User{
		Email:        "ana@example.com",
		Username:     "ana",
		PasswordHash: "hashedpassword",
		Role:         "user",
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	byEmail, err := storage.GetUserByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UID)
	assert.Equal(t, "ana", byEmail.Username)

	byUID, err := storage.GetUser(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", byUID.Email)

	_, err = storage.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_UpsertSubscriberPreservesIdentity(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "ana", "ana@example.com")
	end := time.Now().Add(30 * 24 * time.Hour).UTC()

	err := storage.UpsertSubscriber(context.Background(), models.Subscriber{
		Email:            "ana@example.com",
		UserUID:          uid,
		StripeCustomerID: "cus_123",
		Subscribed:       true,
		SubscriptionEnd:  &end,
		SubscriptionTier: "premium",
	})
	require.NoError(t, err)

	// A later upsert with empty uid and customer id must not erase them.
	err = storage.UpsertSubscriber(context.Background(), models.Subscriber{
		Email:      "ana@example.com",
		Subscribed: false,
	})
	require.NoError(t, err)

	sub, err := storage.GetSubscriberByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, sub.UserUID)
	assert.Equal(t, "cus_123", sub.StripeCustomerID)
	assert.False(t, sub.Subscribed)
	assert.Nil(t, sub.SubscriptionEnd)
}

func TestStorage_UpsertProvisionalSubscriberKeepsPremiumFlag(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	end := time.Now().Add(10 * 24 * time.Hour).UTC()
	factory.CreateSubscriber(t, "ana@example.com", "cus_123", true, &end)

	uid := factory.CreateUser(t, "ana", "owner@example.com")
	err := storage.UpsertProvisionalSubscriber(context.Background(), "ana@example.com", uid)
	require.NoError(t, err)

	sub, err := storage.GetSubscriberByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.True(t, sub.Subscribed, "a provisional write must not downgrade an active entitlement")
	assert.Equal(t, uid, sub.UserUID)

	// And for a fresh address it creates a not-subscribed row.
	err = storage.UpsertProvisionalSubscriber(context.Background(), "bob@example.com", "")
	require.NoError(t, err)
	fresh, err := storage.GetSubscriberByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, fresh.Subscribed)
}

func TestStorage_GetSubscriberByCustomerID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	factory.CreateSubscriber(t, "ana@example.com", "cus_123", true, nil)

	sub, err := storage.GetSubscriberByCustomerID(context.Background(), "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sub.Email)

	_, err = storage.GetSubscriberByCustomerID(context.Background(), "cus_ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_MarkSubscriberExpired(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	end := time.Now().Add(-time.Hour).UTC()
	factory.CreateSubscriber(t, "ana@example.com", "cus_123", true, &end)

	err := storage.MarkSubscriberExpired(context.Background(), "ana@example.com")
	require.NoError(t, err)

	sub, err := storage.GetSubscriberByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.False(t, sub.Subscribed)
	assert.Empty(t, sub.SubscriptionTier)
}

func TestStorage_CatalogRoundTrip(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "ana", "ana@example.com")

	err := storage.CreateCatalog(context.Background(), models.Catalog{
		ID:      "catalog_" + uid,
		UserUID: uid,
		Products: []models.Product{
			{ID: "product_a", Name: "Caneca", RedirectURL: "https://store.example.com/caneca"},
		},
	})
	require.NoError(t, err)

	cat, err := storage.GetCatalog(context.Background(), "catalog_"+uid)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Version)
	require.Len(t, cat.Products, 1)
	assert.Nil(t, cat.WallpaperURL)

	byOwner, err := storage.GetCatalogByOwner(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, cat.ID, byOwner.ID)

	_, err = storage.GetCatalog(context.Background(), "catalog_ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStorage_SaveCatalogOptimisticVersion(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "ana", "ana@example.com")
	require.NoError(t, storage.CreateCatalog(context.Background(), models.Catalog{
		ID:      "catalog_" + uid,
		UserUID: uid,
	}))

	cat, err := storage.GetCatalog(context.Background(), "catalog_"+uid)
	require.NoError(t, err)

	// First writer wins and bumps the version.
	cat.Products = append(cat.Products, models.Product{
		ID: "product_a", Name: "Caneca", RedirectURL: "https://store.example.com/caneca",
	})
	require.NoError(t, storage.SaveCatalog(context.Background(), *cat))

	// Second writer still holds the old version and must lose.
	cat.Products = append(cat.Products, models.Product{
		ID: "product_b", Name: "Camiseta", RedirectURL: "https://store.example.com/camiseta",
	})
	err = storage.SaveCatalog(context.Background(), *cat)
	assert.ErrorIs(t, err, ErrVersionConflict)

	// The stored document is the first writer's version, intact.
	stored, err := storage.GetCatalog(context.Background(), "catalog_"+uid)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	require.Len(t, stored.Products, 1)
	assert.Equal(t, "product_a", stored.Products[0].ID)
}

func TestStorage_EmptyProductsScansAsEmptySlice(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()
	factory := NewTestDataFactory(storage)

	uid := factory.CreateUser(t, "ana", "ana@example.com")
	require.NoError(t, storage.CreateCatalog(context.Background(), models.Catalog{
		ID:      "catalog_" + uid,
		UserUID: uid,
	}))

	cat, err := storage.GetCatalog(context.Background(), "catalog_"+uid)
	require.NoError(t, err)
	require.NotNil(t, cat.Products)
	assert.Len(t, cat.Products, 0)
}
