package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/linkshop/catalogo/internal/http/middlewarectx"
	"github.com/linkshop/catalogo/internal/services/checkout"
)

type CheckoutServiceMock struct {
	mock.Mock
}

func (m *CheckoutServiceMock) Start(ctx context.Context, userUID, email, origin string) (string, error) {
	args := m.Called(ctx, userUID, email, origin)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCheckoutHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		mockURL        string
		mockErr        error
		wantStatusCode int
		wantError      string
	}{
		{
			name:           "session created",
			origin:         "https://linkshop.app",
			mockURL:        "https://pay.example.com/cs_123",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "origin not in allowlist",
			origin:         "https://evil.example.com",
			mockErr:        checkout.ErrInvalidOrigin,
			wantStatusCode: http.StatusForbidden,
			wantError:      "origin not allowed",
		},
		{
			name:           "provider outage",
			origin:         "https://linkshop.app",
			mockErr:        checkout.ErrUpstream,
			wantStatusCode: http.StatusInternalServerError,
			wantError:      "could not start checkout",
		},
		{
			name:           "malformed account email",
			origin:         "https://linkshop.app",
			mockErr:        checkout.ErrInvalidEmail,
			wantStatusCode: http.StatusUnprocessableEntity,
			wantError:      "invalid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(CheckoutServiceMock)
			handler := New(newNoopLogger(), serviceMock)

			serviceMock.On("Start", mock.Anything, "uid-1", "ana@example.com", tt.origin).
				Return(tt.mockURL, tt.mockErr).Once()

			req := httptest.NewRequest(http.MethodPost, "/subscription/checkout", nil)
			req.Header.Set("Origin", tt.origin)
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
			ctx = context.WithValue(ctx, middlewarectx.Email, "ana@example.com")
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "uid-1")
			req = req.WithContext(ctx)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			} else {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, tt.mockURL, data["url"])
			}

			serviceMock.AssertExpectations(t)
		})
	}

	t.Run("missing identity", func(t *testing.T) {
		serviceMock := new(CheckoutServiceMock)
		handler := New(newNoopLogger(), serviceMock)

		req := httptest.NewRequest(http.MethodPost, "/subscription/checkout", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		serviceMock.AssertNotCalled(t, "Start")
	})
}
