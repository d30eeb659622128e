package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/oakstreet-digital/business-site-backend/internal/auth"
	"github.com/oakstreet-digital/business-site-backend/internal/config"
	"github.com/oakstreet-digital/business-site-backend/internal/domain"
	"github.com/oakstreet-digital/business-site-backend/internal/repository"
	"github.com/oakstreet-digital/business-site-backend/internal/validate"
	"github.com/oakstreet-digital/business-site-backend/pkg/util"
)

// The same message is returned whether the account is absent or the password
// mismatches, so responses cannot be used to enumerate accounts.
const invalidCredentialsMsg = "invalid credentials"

// AuthService coordinates registration, login and credential management.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	seed       config.AuthConfig
	logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, users repository.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
		seed:       cfg.Auth,
		logger:     logger,
	}
}

type registerInput struct {
	Username string `validate:"required,min=3"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// Register creates a member account after validating all fields. Duplicate
// username or email surfaces as a conflict.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if violations := validate.Struct(registerInput{
		Username: username,
		Email:    email,
		Password: password,
	}); violations != nil {
		return nil, util.NewValidationError("validation failed", violations)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleMember,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, util.NewConflict("username or email already registered")
		}
		return nil, util.NewInternalError(err)
	}
	return user, nil
}

// Login authenticates by username or email and issues a session token. A
// successful login refreshes the account's updated_at.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByUsernameOrEmail(ctx, strings.TrimSpace(usernameOrEmail))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, util.NewUnauthorized(invalidCredentialsMsg)
		}
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized(invalidCredentialsMsg)
	}

	token, expiresAt, err := s.tokenMgr.Generate(user)
	if err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}

	if err := s.users.Touch(ctx, user.ID); err != nil {
		return nil, "", time.Time{}, util.NewInternalError(err)
	}
	user.UpdatedAt = time.Now()

	return user, token, expiresAt, nil
}

// Profile loads the account behind verified claims.
func (s *AuthService) Profile(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	if claims == nil {
		return nil, util.NewUnauthorized("authentication required")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewUnauthorized("account no longer exists")
		}
		return nil, util.NewInternalError(err)
	}
	return user, nil
}

type changePasswordInput struct {
	NewPassword string `validate:"required,min=6"`
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, claims *auth.Claims, currentPassword, newPassword string) error {
	if claims == nil {
		return util.NewUnauthorized("authentication required")
	}
	if violations := validate.Struct(changePasswordInput{NewPassword: newPassword}); violations != nil {
		return util.NewValidationError("validation failed", violations)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewUnauthorized("account no longer exists")
		}
		return util.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return util.NewUnauthorized(invalidCredentialsMsg)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return util.NewInternalError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return util.NewInternalError(err)
	}
	return nil
}

// Bootstrap seeds the first owner account when none exists. Safe to call on
// every startup; a concurrent seed racing on the unique constraint is treated
// as already done.
func (s *AuthService) Bootstrap(ctx context.Context) error {
	count, err := s.users.CountByRole(ctx, domain.RoleOwner)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(s.seed.SeedOwnerPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	owner := &domain.User{
		Username:     s.seed.SeedOwnerUsername,
		Email:        s.seed.SeedOwnerEmail,
		PasswordHash: hash,
		Role:         domain.RoleOwner,
	}
	if err := s.users.Create(ctx, owner); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil
		}
		return err
	}

	s.logger.Info("seed owner account created; change the default password",
		zap.String("username", owner.Username),
		zap.String("default_password", s.seed.SeedOwnerPassword),
	)
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
