package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/bloghub/blog-api/internal/access"
)

// NewOwnerResolver returns an access.OwnerResolver that reads comment authors from repo.
func NewOwnerResolver(repo Repository) access.OwnerResolver {
	return access.OwnerResolverFunc(func(ctx context.Context, id string) (string, error) {
		comment, err := repo.GetComment(ctx, id)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				return "", fmt.Errorf("%w: %w", access.ErrResourceNotFound, ErrCommentNotFound)
			}
			return "", fmt.Errorf("resolve comment owner: %w", err)
		}
		return comment.AuthorID, nil
	})
}
