// Package comments provides comment management on blog posts.
package comments

import (
	"context"
	"fmt"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
)

// Authorizer decides whether a caller may act on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, caller *domain.Principal, req access.Request) error
}

// PostReader checks post existence.
type PostReader interface {
	PostExists(ctx context.Context, id string) (bool, error)
}

// Service implements comment business logic.
type Service struct {
	repo  Repository
	posts PostReader
	authz Authorizer
}

// NewService creates a new comment service.
func NewService(repo Repository, posts PostReader, authz Authorizer) *Service {
	return &Service{repo: repo, posts: posts, authz: authz}
}

// GetComment returns a comment by ID.
func (s *Service) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	return s.repo.GetComment(ctx, id)
}

// ListByPost returns the comments of a post, oldest first.
func (s *Service) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return s.repo.ListByPost(ctx, postID)
}

// ListByAuthor returns the comments written by a user, newest first.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]domain.Comment, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// CreateComment adds a comment by the caller to a post.
func (s *Service) CreateComment(ctx context.Context, caller *domain.Principal, postID, content string) (*domain.Comment, error) {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource: access.ResourceComment,
		Action:   access.ActionCreate,
	}); err != nil {
		return nil, err
	}

	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   postID,
		AuthorID: caller.UserID,
		Content:  content,
	}

	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	ctxlog.FromContext(ctx).Info("comment created", "comment_id", comment.ID, "post_id", postID)
	return comment, nil
}

// UpdateComment changes the content of a comment. Only its author or an admin may do so.
func (s *Service) UpdateComment(ctx context.Context, caller *domain.Principal, id, content string) (*domain.Comment, error) {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource:   access.ResourceComment,
		Action:     access.ActionUpdate,
		ResourceID: id,
	}); err != nil {
		return nil, err
	}

	comment, err := s.repo.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.repo.UpdateComment(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

// DeleteComment removes a comment. Only its author or an admin may do so.
func (s *Service) DeleteComment(ctx context.Context, caller *domain.Principal, id string) error {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource:   access.ResourceComment,
		Action:     access.ActionDelete,
		ResourceID: id,
	}); err != nil {
		return err
	}

	if err := s.repo.DeleteComment(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("comment deleted", "comment_id", id)
	return nil
}

func (s *Service) requirePost(ctx context.Context, postID string) error {
	ok, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return fmt.Errorf("check post: %w", err)
	}
	if !ok {
		return ErrPostNotFound
	}
	return nil
}
