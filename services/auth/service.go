package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/repositories"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultSessionTTL is how long a login stays valid
	DefaultSessionTTL = 7 * 24 * time.Hour

	tokenIssuer = "license-inventory"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// unknownUserHash is compared against when no active user matches so a miss costs one bcrypt round too
func unknownUserHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("license-inventory-unknown-user"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Throttle limits repeated failed logins
type Throttle interface {
	Check(ctx context.Context, username, ip string) (*ratelimit.CheckResult, error)
	RecordFailure(ctx context.Context, username, ip string) error
	Reset(ctx context.Context, username string) error
}

// EventLogger records login and logout events
type EventLogger interface {
	LogLogin(username, ipAddress string) error
	LogLogout(username string) error
}

// Claims identifies the authenticated user behind a request
type Claims struct {
	UserID    uuid.UUID
	Username  string
	Role      models.UserRole
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// tokenClaims is the signed payload; the subject is the session id
type tokenClaims struct {
	jwt.RegisteredClaims
}

// Config holds session settings
type Config struct {
	Secret     []byte
	SessionTTL time.Duration
}

// LoginResult is returned by a successful Login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Service authenticates console users against password hashes and server-side sessions
type Service struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	throttle Throttle
	events   EventLogger
	config   Config
	logger   *zap.Logger
	now      func() time.Time
	compare  func(hash, password []byte) error
}

// NewService creates a new auth Service
func NewService(
	users repositories.UserRepository,
	sessions repositories.SessionRepository,
	throttle Throttle,
	events EventLogger,
	config Config,
	logger *zap.Logger,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}
	return &Service{
		users:    users,
		sessions: sessions,
		throttle: throttle,
		events:   events,
		config:   config,
		logger:   logger,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

// Login checks the credentials, opens a session and returns its signed token
func (s *Service) Login(ctx context.Context, username, password, ip string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, services.Validation("username and password are required")
	}

	check, err := s.throttle.Check(ctx, username, ip)
	if err != nil {
		return nil, services.WrapInternal("failed to check login attempts", err)
	}
	if !check.Allowed {
		s.logger.Warn("login throttled",
			zap.String("username", username),
			zap.String("scope", check.ViolatedScope),
			zap.Time("retry_at", check.RetryAt))
		return nil, services.NewDomainError(services.ErrorTypeRateLimit, services.ErrTooManyLoginAttempts.Message, nil).
			WithDetail("retry_at", check.RetryAt)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, services.WrapInternal("failed to load user", err)
	}
	var rejected bool
	if user == nil || !user.IsActive {
		_ = s.compare(unknownUserHash(), []byte(password))
		rejected = true
	} else {
		rejected = s.compare([]byte(user.PasswordHash), []byte(password)) != nil
	}
	if rejected {
		if err := s.throttle.RecordFailure(ctx, username, ip); err != nil {
			s.logger.Error("failed to record login failure", zap.Error(err))
		}
		s.logger.Info("login rejected", zap.String("username", username), zap.String("ip", ip))
		return nil, services.ErrInvalidCredentials
	}

	if err := s.throttle.Reset(ctx, username); err != nil {
		s.logger.Error("failed to reset login attempts", zap.Error(err))
	}

	session := models.NewSession(user.ID, s.config.SessionTTL)
	session.CreatedAt = s.now()
	session.ExpiresAt = session.CreatedAt.Add(s.config.SessionTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, services.WrapInternal("failed to create session", err)
	}

	token, err := s.sign(session)
	if err != nil {
		return nil, services.WrapInternal("failed to sign session token", err)
	}

	if err := s.events.LogLogin(user.Username, ip); err != nil {
		s.logger.Warn("failed to audit login", zap.Error(err))
	}
	s.logger.Info("user logged in", zap.String("username", user.Username), zap.String("ip", ip))

	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout ends the session behind token. Unknown or expired tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	sessionID, err := s.parse(token)
	if err != nil {
		return nil
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return services.WrapInternal("failed to load session", err)
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return services.WrapInternal("failed to delete session", err)
	}

	if user, err := s.users.GetByID(ctx, session.UserID); err == nil {
		if err := s.events.LogLogout(user.Username); err != nil {
			s.logger.Warn("failed to audit logout", zap.Error(err))
		}
	}
	return nil
}

// ValidateToken resolves token to the claims of an active user with a live session
func (s *Service) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	sessionID, err := s.parse(token)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUnauthorized, services.ErrInvalidToken.Message, err)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load session", err)
	}

	if session.IsExpired(s.now()) {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, services.ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrInvalidToken
		}
		return nil, services.WrapInternal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, services.NewDomainError(services.ErrorTypeUnauthorized, "account is deactivated", nil)
	}

	return &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Me returns the user behind claims
func (s *Service) Me(ctx context.Context, claims *Claims) (*models.User, error) {
	if claims == nil {
		return nil, services.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, services.MapRepoError(err, services.ErrUserNotFound, nil, "failed to load user")
	}
	return user, nil
}

// PurgeExpiredSessions deletes sessions that expired before now
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, services.WrapInternal("failed to purge sessions", err)
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", zap.Int64("count", n))
	}
	return n, nil
}

// StartSessionCleanup purges expired sessions every interval until ctx is cancelled
func (s *Service) StartSessionCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.PurgeExpiredSessions(ctx); err != nil {
				s.logger.Error("session cleanup failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) sign(session *models.Session) (string, error) {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   session.ID.String(),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
}

// parse verifies the signature and returns the session id the token wraps.
// Expiry is enforced against the stored session, not the token.
func (s *Service) parse(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, errors.New("empty token")
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.config.Secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token claims")
	}
	if claims.Issuer != tokenIssuer {
		return uuid.Nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	return uuid.Parse(claims.Subject)
}

// HashPassword returns the bcrypt hash of password at cost
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
