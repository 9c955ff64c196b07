package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/auth"
	"go.uber.org/zap"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 4

	// SeedBcryptCost is the hashing cost used for the seeded admin
	SeedBcryptCost = 12
)

// CreateInput holds the fields of a new console user
type CreateInput struct {
	Username string
	Password string
	Name     *string
	Email    *string
	Role     models.UserRole
}

// UpdateInput holds editable profile fields
type UpdateInput struct {
	Name  *string
	Email *string
	Role  models.UserRole
}

// Service manages console user accounts
type Service struct {
	users      repositories.UserRepository
	sessions   repositories.SessionRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates a new users Service
func NewService(users repositories.UserRepository, sessions repositories.SessionRepository, bcryptCost int, logger *zap.Logger) *Service {
	return &Service{users: users, sessions: sessions, bcryptCost: bcryptCost, logger: logger}
}

// List returns every user
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list users", err)
	}
	return users, nil
}

// Create adds a user with a hashed password
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, services.Validation("username and password are required")
	}
	if len(input.Password) < MinPasswordLength {
		return nil, services.ErrPasswordTooShort
	}
	role := input.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, services.Validation("invalid role %q", role)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(username, hash, role)
	user.Name = trimmed(input.Name)
	user.Email = trimmed(input.Email)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, services.MapRepoError(err, nil, services.Conflict("username or email already exists"), "failed to create user")
	}

	s.logger.Info("user created", zap.String("username", username), zap.String("role", string(role)))
	return user, nil
}

// Update changes name, email and role. An admin cannot demote themselves.
func (s *Service) Update(ctx context.Context, actorID, id uuid.UUID, input UpdateInput) (*models.User, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Role != "" {
		if !models.ValidRole(input.Role) {
			return nil, services.Validation("invalid role %q", input.Role)
		}
		if actorID == id && user.IsAdmin() && input.Role != models.RoleAdmin {
			return nil, services.NewDomainError(services.ErrorTypeForbidden, "cannot remove your own admin role", nil)
		}
		user.Role = input.Role
	}
	user.Name = trimmed(input.Name)
	user.Email = trimmed(input.Email)

	if err := s.users.Update(ctx, user); err != nil {
		return nil, services.MapRepoError(err, services.ErrUserNotFound, services.ErrDuplicateEmail, "failed to update user")
	}

	s.logger.Info("user updated", zap.String("username", user.Username))
	return user, nil
}

// ChangePassword replaces the user's password hash
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	if len(password) < MinPasswordLength {
		return services.ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return services.WrapInternal("failed to hash password", err)
	}

	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return services.MapRepoError(err, services.ErrUserNotFound, nil, "failed to update password")
	}
	return nil
}

// ToggleActive flips the user's active flag. Deactivating signs the user out everywhere.
func (s *Service) ToggleActive(ctx context.Context, actorID, id uuid.UUID) (*models.User, error) {
	if actorID == id {
		return nil, services.ErrSelfModification
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = !user.IsActive
	if err := s.users.SetActive(ctx, id, user.IsActive); err != nil {
		return nil, services.MapRepoError(err, services.ErrUserNotFound, nil, "failed to update user")
	}

	if !user.IsActive {
		n, err := s.sessions.DeleteByUser(ctx, id)
		if err != nil {
			return nil, services.WrapInternal("failed to revoke sessions", err)
		}
		s.logger.Info("user deactivated", zap.String("username", user.Username), zap.Int64("sessions_revoked", n))
	} else {
		s.logger.Info("user activated", zap.String("username", user.Username))
	}

	return user, nil
}

// Delete removes a user other than the caller
func (s *Service) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return services.ErrSelfModification
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return services.MapRepoError(err, services.ErrUserNotFound, nil, "failed to delete user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}

// SeedAdmin creates or resets the admin account with username and password
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, services.Validation("admin username is required")
	}
	if len(password) < MinPasswordLength {
		return nil, services.ErrPasswordTooShort
	}

	hash, err := auth.HashPassword(password, SeedBcryptCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(username, hash, models.RoleAdmin)
	if err := s.users.UpsertAdmin(ctx, user); err != nil {
		return nil, services.WrapInternal("failed to seed admin", err)
	}

	s.logger.Info("admin account seeded", zap.String("username", username))
	return user, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrUserNotFound
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	return user, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
