package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/auth"
	"go.uber.org/zap"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	t.Run("sets the session cookie", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc, true, zap.NewNop())
		expires := time.Now().Add(7 * 24 * time.Hour)
		user := models.NewUser("admin", "hash", models.RoleAdmin)
		svc.On("Login", mock.Anything, "admin", "secret", "192.0.2.1").
			Return(&auth.LoginResult{Token: "signed", ExpiresAt: expires, User: user}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"secret"}`))
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()

		handler.HandleLogin(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		cookie := findCookie(rec, middleware.SessionCookieName)
		require.NotNil(t, cookie)
		assert.Equal(t, "signed", cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Greater(t, cookie.MaxAge, 0)

		var body struct {
			Data struct {
				Token string `json:"token"`
				User  struct {
					Username string `json:"username"`
				} `json:"user"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "signed", body.Data.Token)
		assert.Equal(t, "admin", body.Data.User.Username)
		assert.NotContains(t, rec.Body.String(), "hash")
		svc.AssertExpectations(t)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc, false, zap.NewNop())
		svc.On("Login", mock.Anything, "admin", "nope", mock.Anything).Return(nil, services.ErrInvalidCredentials)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"nope"}`))
		rec := httptest.NewRecorder()

		handler.HandleLogin(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, findCookie(rec, middleware.SessionCookieName))
	})

	t.Run("throttled", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc, false, zap.NewNop())
		throttled := services.NewDomainError(services.ErrorTypeRateLimit, services.ErrTooManyLoginAttempts.Message, nil).
			WithDetail("retry_at", "2024-01-15T14:45:00Z")
		svc.On("Login", mock.Anything, "admin", "x", mock.Anything).Return(nil, throttled)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"username":"admin","password":"x"}`))
		rec := httptest.NewRecorder()

		handler.HandleLogin(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		response := decodeErrorResponse(t, rec)
		assert.Equal(t, "rate_limit_exceeded", response.Error)
		assert.Equal(t, "2024-01-15T14:45:00Z", response.Details["retry_at"])
	})

	t.Run("missing fields", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc, false, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"admin"}`))
		rec := httptest.NewRecorder()

		handler.HandleLogin(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	svc := new(MockAuthService)
	handler := NewAuthHandler(svc, false, zap.NewNop())
	svc.On("Logout", mock.Anything, "signed").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "signed"})
	rec := httptest.NewRecorder()

	handler.HandleLogout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookie := findCookie(rec, middleware.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
	svc.AssertExpectations(t)
}

func TestAuthHandler_HandleMe(t *testing.T) {
	t.Run("returns the current user", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc, false, zap.NewNop())
		claims := adminClaims()
		svc.On("Me", mock.Anything, claims).Return(models.NewUser("admin", "hash", models.RoleAdmin), nil)

		req := withClaims(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil), claims)
		rec := httptest.NewRecorder()

		handler.HandleMe(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"username":"admin"`)
	})

	t.Run("401 without claims", func(t *testing.T) {
		handler := NewAuthHandler(new(MockAuthService), false, zap.NewNop())
		rec := httptest.NewRecorder()

		handler.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
