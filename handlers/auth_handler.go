package handlers

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/auth"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// LoginRequest represents a login form
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login. The token is also set as a cookie.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AuthService defines the session operations used by the HTTP layer
type AuthService interface {
	Login(ctx context.Context, username, password, ip string) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, claims *auth.Claims) (*models.User, error)
}

// AuthHandler handles login, logout and the current user
type AuthHandler struct {
	service      AuthService
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session cookie Secure.
func NewAuthHandler(service AuthService, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req LoginRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	result, err := h.service.Login(ctx, req.Username, req.Password, clientIP(r))
	if err != nil {
		h.logger.Info("login rejected",
			zap.String("request_id", requestID),
			zap.String("username", req.Username),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    result.Token,
		Path:     "/",
		Expires:  result.ExpiresAt,
		MaxAge:   int(time.Until(result.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("user logged in",
		zap.String("request_id", requestID),
		zap.String("username", result.User.Username))

	_ = utils.WriteOK(w, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      result.User,
	})
}

// HandleLogout handles POST /api/v1/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if token := middleware.ExtractToken(r); token != "" {
		if err := h.service.Logout(ctx, token); err != nil {
			h.logger.Error("logout failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			HandleServiceError(w, err, h.logger)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	utils.WriteNoContent(w)
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	user, err := h.service.Me(ctx, claims)
	if err != nil {
		h.logger.Warn("failed to load current user",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// clientIP returns the remote host; RealIP has already applied forwarding headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
