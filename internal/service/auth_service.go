// Package service holds the application's business rules. Handlers call
// services; services call repositories.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"inkwell/internal/auth"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const invalidCredentialsMessage = "invalid email or password"

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(userID, email string) (string, error)
	Verify(token string) (*models.Identity, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Compare(ctx context.Context, hash, password string) error
}

// AuthService registers accounts, logs users in and resolves session tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens TokenService
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.UserRepository, tokens TokenService, hasher PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

// Register creates an account and returns a session for it.
func (s *AuthService) Register(ctx context.Context, email, password string) (result *models.AuthResult, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Register")
	defer func() {
		observability.AuthAttempts.WithLabelValues("register", observability.Outcome(err)).Inc()
		observability.EndSpan(span, err)
	}()

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("email already registered")
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{Email: email, PasswordHash: hash}
	// A concurrent registration can still win the race; Create maps the
	// unique violation to a conflict.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	middleware.Logger.InfoContext(ctx, "User registered", slog.String("user_id", user.ID))
	return s.session(user)
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (result *models.AuthResult, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Login")
	defer func() {
		observability.AuthAttempts.WithLabelValues("login", observability.Outcome(err)).Inc()
		observability.EndSpan(span, err)
	}()

	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}
	if len(password) > validation.MaxPasswordBytes {
		return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.burnCompare(ctx, password)
		return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
	}

	if err := s.hasher.Compare(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, models.NewUnauthorizedError(invalidCredentialsMessage)
		}
		return nil, models.NewInternalError(err)
	}

	span.SetAttributes(attribute.String("user.id", user.ID))
	return s.session(user)
}

// Verify resolves a session token to the identity it was issued for.
func (s *AuthService) Verify(token string) (*models.Identity, error) {
	identity, err := s.tokens.Verify(token)
	observability.AuthAttempts.WithLabelValues("verify", observability.Outcome(err)).Inc()
	if err != nil {
		return nil, models.NewUnauthorizedError("invalid or expired token")
	}
	return identity, nil
}

// Authenticate extracts the bearer token from an Authorization header and
// verifies it.
func (s *AuthService) Authenticate(header string) (*models.Identity, error) {
	token, err := auth.ParseBearer(header)
	if err != nil {
		return nil, models.NewUnauthorizedError(err.Error())
	}
	return s.Verify(token)
}

func (s *AuthService) session(user *models.User) (*models.AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.AuthResult{Token: token, User: user.Public()}, nil
}

// burnCompare spends one bcrypt comparison so a login for an unknown email
// takes as long as one with a wrong password.
func (s *AuthService) burnCompare(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), "inkwell-timing-placeholder")
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to prepare dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(ctx, s.dummyHash, password)
	}
}
