package identity

import (
	"context"

	"github.com/bloghub/blog-api/internal/domain"
)

// Repository defines the credential store.
type Repository interface {
	// CreateUser inserts a user and fills ID and timestamps.
	// Returns ErrEmailExists when the email is already taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	// UpdateProfile persists display name and profile image URL.
	UpdateProfile(ctx context.Context, user *domain.User) error
	// EnsureUser inserts the user if the email is free, otherwise only aligns the role.
	// created reports whether a new row was inserted.
	EnsureUser(ctx context.Context, user *domain.User) (created bool, err error)
}
