package comments

import (
	"context"

	"github.com/bloghub/blog-api/internal/domain"
)

// Repository defines the interface for comment data operations.
type Repository interface {
	CreateComment(ctx context.Context, comment *domain.Comment) error
	GetComment(ctx context.Context, id string) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]domain.Comment, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
}
