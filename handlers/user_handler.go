package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/license-inventory/middleware"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services/users"
	"github.com/upb/license-inventory/utils"
	"go.uber.org/zap"
)

// CreateUserRequest represents a request to create a console user
type CreateUserRequest struct {
	Username string          `json:"username" validate:"required,max=100"`
	Password string          `json:"password" validate:"required"`
	Name     *string         `json:"name,omitempty"`
	Email    *string         `json:"email,omitempty" validate:"omitempty,email"`
	Role     models.UserRole `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}

// UpdateUserRequest represents a request to edit a console user
type UpdateUserRequest struct {
	Name  *string         `json:"name,omitempty"`
	Email *string         `json:"email,omitempty" validate:"omitempty,email"`
	Role  models.UserRole `json:"role" validate:"required,oneof=ADMIN USER"`
}

// ChangePasswordRequest carries a new password
type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// UserService defines the admin console operations used by the HTTP layer
type UserService interface {
	List(ctx context.Context) ([]*models.User, error)
	Create(ctx context.Context, input users.CreateInput) (*models.User, error)
	Update(ctx context.Context, actorID, id uuid.UUID, input users.UpdateInput) (*models.User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, password string) error
	ToggleActive(ctx context.Context, actorID, id uuid.UUID) (*models.User, error)
	Delete(ctx context.Context, actorID, id uuid.UUID) error
}

// UserHandler handles console user administration
type UserHandler struct {
	service UserService
	logger  *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{service: service, logger: logger}
}

// HandleList handles GET /api/v1/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, list)
}

// HandleCreate handles POST /api/v1/users
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateUserRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	user, err := h.service.Create(ctx, users.CreateInput{
		Username: req.Username,
		Password: req.Password,
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		h.logger.Warn("failed to create user",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user created",
		zap.String("request_id", requestID),
		zap.String("user_id", user.ID.String()),
		zap.String("actor", middleware.Actor(ctx)))

	_ = utils.WriteCreated(w, user)
}

// HandleUpdate handles PUT /api/v1/users/{id}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	actorID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	user, err := h.service.Update(ctx, actorID, id, users.UpdateInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleChangePassword handles PUT /api/v1/users/{id}/password
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	_, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !decodeRequest(w, r, &req, h.logger, requestID) {
		return
	}

	if err := h.service.ChangePassword(ctx, id, req.Password); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user password changed",
		zap.String("request_id", requestID),
		zap.String("user_id", id.String()))
	utils.WriteNoContent(w)
}

// HandleToggleActive handles POST /api/v1/users/{id}/toggle-active
func (h *UserHandler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	user, err := h.service.ToggleActive(r.Context(), actorID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, user)
}

// HandleDelete handles DELETE /api/v1/users/{id}
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, id, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// ids returns the calling user's id and the target user id from the path
func (h *UserHandler) ids(w http.ResponseWriter, r *http.Request) (actorID, id uuid.UUID, ok bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "invalid user id", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return claims.UserID, id, true
}
