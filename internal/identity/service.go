// Package identity provides registration, login and user profile management.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/identity/password"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
	"github.com/bloghub/blog-api/internal/pkg/metrics"
	"golang.org/x/text/secure/precis"
)

// ErrInvalidDisplayName is returned when a display name cannot be normalized.
var ErrInvalidDisplayName = errors.New("invalid display name")

// Token is an issued bearer credential.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Authenticator issues and verifies bearer tokens.
type Authenticator interface {
	GenerateToken(ctx context.Context, user *domain.User) (*Token, error)
	ValidateToken(ctx context.Context, token string) (*domain.Principal, error)
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	Token *Token
	User  *domain.User
}

// RegisterInput holds data for a new account.
type RegisterInput struct {
	Email           string
	DisplayName     string
	Password        string
	ProfileImageURL *string
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds profile changes. Nil fields are left untouched.
type UpdateProfileInput struct {
	DisplayName     *string
	ProfileImageURL *string
}

// SeedUser describes an account created at startup.
type SeedUser struct {
	Email       string
	DisplayName string
	Password    string
	Role        domain.Role
}

// Service implements identity business logic.
type Service struct {
	repo   Repository
	auth   Authenticator
	hasher password.Hasher

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService creates a new identity service.
func NewService(repo Repository, auth Authenticator, hasher password.Hasher) *Service {
	return &Service{
		repo:   repo,
		auth:   auth,
		hasher: hasher,
	}
}

// Register creates a user with the user role and issues a token for it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	displayName, err := normalizeDisplayName(input.DisplayName)
	if err != nil {
		recordAuthAttempt("register", "invalid_input")
		return nil, err
	}

	// The unique constraint in the store is authoritative; this lookup only
	// avoids hashing for an obvious duplicate.
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		recordAuthAttempt("register", "conflict")
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		recordAuthAttempt("register", "error")
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if errors.Is(err, password.ErrPasswordTooLong) {
		recordAuthAttempt("register", "invalid_input")
		return nil, err
	}
	if err != nil {
		recordAuthAttempt("register", "error")
		return nil, err
	}

	user := &domain.User{
		DisplayName:     displayName,
		Email:           email,
		PasswordHash:    digest,
		Role:            domain.RoleUser,
		ProfileImageURL: nonEmpty(input.ProfileImageURL),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			recordAuthAttempt("register", "conflict")
			return nil, ErrEmailExists
		}
		recordAuthAttempt("register", "error")
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		recordAuthAttempt("register", "error")
		return nil, fmt.Errorf("generate token: %w", err)
	}

	ctxlog.FromContext(ctx).Info("user registered", "user_id", user.ID)
	recordAuthAttempt("register", "success")

	return &AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Both failure paths pay for one hash comparison.
			s.hasher.Verify(input.Password, s.timingDigest())
			recordAuthAttempt("login", "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		recordAuthAttempt("login", "error")
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if !s.hasher.Verify(input.Password, user.PasswordHash) {
		recordAuthAttempt("login", "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(ctx, user)
	if err != nil {
		recordAuthAttempt("login", "error")
		return nil, fmt.Errorf("generate token: %w", err)
	}

	recordAuthAttempt("login", "success")
	return &AuthResult{Token: token, User: user}, nil
}

// ValidateToken verifies a bearer token and returns the caller identity.
func (s *Service) ValidateToken(ctx context.Context, token string) (*domain.Principal, error) {
	return s.auth.ValidateToken(ctx, token)
}

// GetUserByID returns a user by ID.
func (s *Service) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsers(ctx)
}

// UpdateProfile changes the caller's own display name and profile image.
func (s *Service) UpdateProfile(ctx context.Context, caller *domain.Principal, input UpdateProfileInput) (*domain.User, error) {
	if caller == nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		name, err := normalizeDisplayName(*input.DisplayName)
		if err != nil {
			return nil, err
		}
		user.DisplayName = name
	}

	if input.ProfileImageURL != nil {
		user.ProfileImageURL = nonEmpty(input.ProfileImageURL)
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return user, nil
}

// SeedUsers makes sure the given accounts exist with the given roles.
// Existing accounts keep their password.
func (s *Service) SeedUsers(ctx context.Context, users []SeedUser) error {
	for _, su := range users {
		if !su.Role.IsValid() {
			return fmt.Errorf("seed user %s: invalid role %q", su.Email, su.Role)
		}

		displayName, err := normalizeDisplayName(su.DisplayName)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}

		digest, err := s.hasher.Hash(su.Password)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}

		user := &domain.User{
			DisplayName:  displayName,
			Email:        normalizeEmail(su.Email),
			PasswordHash: digest,
			Role:         su.Role,
		}

		created, err := s.repo.EnsureUser(ctx, user)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}

		if created {
			slog.Info("seed user created", "email", user.Email, "role", user.Role)
		}
	}
	return nil
}

// fallbackDigest is a well-formed bcrypt digest that matches no password.
const fallbackDigest = "$2a$10$Wc1dPq0tGm3Yx8Lr5Nv2KeQ7uJz4Hs9Bf0Dk2Rw6Ty1Vn3Mp8Xa5C"

func (s *Service) timingDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("timing-equalizer")
		if err != nil {
			slog.Error("failed to prepare timing digest, using fallback", "error", err)
			digest = fallbackDigest
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeDisplayName(name string) (string, error) {
	normalized, err := precis.Nickname.String(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDisplayName, err)
	}
	return normalized, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func recordAuthAttempt(operation, outcome string) {
	metrics.AuthAttempts.WithLabelValues(operation, outcome).Inc()
}
