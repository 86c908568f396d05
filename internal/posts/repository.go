package posts

import (
	"context"

	"github.com/bloghub/blog-api/internal/domain"
)

// ListFilter narrows post listings. Zero values mean no filter.
type ListFilter struct {
	AuthorID string
	Featured *bool
}

// Repository defines the interface for post data operations.
type Repository interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	ListPosts(ctx context.Context, filter ListFilter) ([]domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) error
	// DeletePost removes the post and, through the foreign key, its comments.
	DeletePost(ctx context.Context, id string) error
}
