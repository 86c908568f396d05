package identity

import (
	"errors"
	"fmt"
)

// Repository errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")
)

// Authentication errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownSubject     = errors.New("cannot issue token for unknown subject")
)

// ErrInvalidToken is the parent of every token verification failure.
var ErrInvalidToken = errors.New("invalid or expired token")

// Token verification errors. Each one matches ErrInvalidToken with errors.Is.
var (
	ErrTokenMalformed        = fmt.Errorf("%w: malformed token", ErrInvalidToken)
	ErrTokenInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrInvalidToken)
)
