package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/auth"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}

func okHandler(t *testing.T, want *auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := GetClaimsFromContext(r.Context())
		assert.Equal(t, want, got)
		assert.Equal(t, want.Username, Actor(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func failHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()
	claims := &auth.Claims{UserID: uuid.New(), Username: "kim", Role: models.RoleUser, SessionID: uuid.New()}

	t.Run("bearer token", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "header-token").Return(claims, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(okHandler(t, claims)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		validator.AssertExpectations(t)
	})

	t.Run("session cookie", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "cookie-token").Return(claims, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/licenses", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(okHandler(t, claims)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "header-token").Return(claims, nil)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "cookie-token"})
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(okHandler(t, claims)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		validator.AssertNotCalled(t, "ValidateToken", mock.Anything, "cookie-token")
	})

	t.Run("missing token", func(t *testing.T) {
		validator := new(MockTokenValidator)
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(failHandler(t)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		validator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		validator := new(MockTokenValidator)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "stale").Return(nil, services.ErrSessionExpired)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		validator := new(MockTokenValidator)
		validator.On("ValidateToken", mock.Anything, "token").Return(nil, services.WrapInternal("failed to load session", errors.New("db down")))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer token")
		w := httptest.NewRecorder()

		NewAuthMiddleware(validator, logger).RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	logger := zap.NewNop()
	m := NewAuthMiddleware(new(MockTokenValidator), logger)

	tests := []struct {
		name     string
		claims   *auth.Claims
		wantCode int
	}{
		{"admin passes", &auth.Claims{Username: "root", Role: models.RoleAdmin}, http.StatusOK},
		{"user is forbidden", &auth.Claims{Username: "kim", Role: models.RoleUser}, http.StatusForbidden},
		{"no claims", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			w := httptest.NewRecorder()

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			m.RequireRole(models.RoleAdmin)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestActor_DefaultsToSystem(t *testing.T) {
	assert.Equal(t, "system", Actor(context.Background()))
}
