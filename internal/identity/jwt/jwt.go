// Package jwt implements identity.Authenticator with HMAC-signed JSON Web Tokens.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/identity"
	gojwt "github.com/golang-jwt/jwt/v5"
)

// TokenType is the scheme clients put in the Authorization header.
const TokenType = "Bearer"

// Config contains JWT authenticator configuration.
type Config struct {
	SecretKey string
	TokenTTL  time.Duration
	Issuer    string
}

// Claims is the token payload.
type Claims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	gojwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *gojwt.Parser
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// NewAuthenticator creates a new JWT authenticator.
func NewAuthenticator(cfg Config, opts ...Option) (*Authenticator, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("jwt secret key is required")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("jwt token ttl must be positive")
	}

	a := &Authenticator{
		secret: []byte(cfg.SecretKey),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	parserOpts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(a.now),
		gojwt.WithExpirationRequired(),
		gojwt.WithIssuedAt(),
	}
	if a.issuer != "" {
		parserOpts = append(parserOpts, gojwt.WithIssuer(a.issuer))
	}
	a.parser = gojwt.NewParser(parserOpts...)

	return a, nil
}

// GenerateToken issues a token for the given user.
func (a *Authenticator) GenerateToken(_ context.Context, user *domain.User) (*identity.Token, error) {
	if user == nil || user.ID == "" || user.Email == "" {
		return nil, identity.ErrUnknownSubject
	}

	now := a.now()
	expiresAt := now.Add(a.ttl)

	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   user.Email,
			Issuer:    a.issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &identity.Token{
		AccessToken: signed,
		TokenType:   TokenType,
		ExpiresAt:   expiresAt.UTC().Truncate(time.Second),
	}, nil
}

// ValidateToken verifies signature and expiry and returns the caller identity.
func (a *Authenticator) ValidateToken(_ context.Context, tokenString string) (*domain.Principal, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(tokenString, claims, func(*gojwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	if claims.Subject == "" || claims.UserID == "" || !claims.Role.IsValid() {
		return nil, identity.ErrTokenMalformed
	}

	return &domain.Principal{
		Subject: claims.Subject,
		UserID:  claims.UserID,
		Role:    claims.Role,
	}, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return identity.ErrTokenInvalidSignature
	case errors.Is(err, gojwt.ErrTokenExpired):
		return identity.ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", identity.ErrTokenMalformed, err)
	}
}
