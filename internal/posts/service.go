// Package posts provides blog post management.
package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghub/blog-api/internal/access"
	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
)

// Authorizer decides whether a caller may act on a resource.
type Authorizer interface {
	Authorize(ctx context.Context, caller *domain.Principal, req access.Request) error
}

// CreateInput holds data for a new post.
type CreateInput struct {
	Title        string
	Content      string
	ThumbnailURL *string
	Featured     bool
}

// UpdateInput holds post changes. Nil fields are left untouched.
type UpdateInput struct {
	Title        *string
	Content      *string
	ThumbnailURL *string
	Featured     *bool
}

func (in UpdateInput) empty() bool {
	return in.Title == nil && in.Content == nil && in.ThumbnailURL == nil && in.Featured == nil
}

// Service implements post business logic.
type Service struct {
	repo  Repository
	authz Authorizer
}

// NewService creates a new post service.
func NewService(repo Repository, authz Authorizer) *Service {
	return &Service{repo: repo, authz: authz}
}

// ListPosts returns posts matching the filter, newest first.
func (s *Service) ListPosts(ctx context.Context, filter ListFilter) ([]domain.Post, error) {
	return s.repo.ListPosts(ctx, filter)
}

// GetPost returns a post by ID.
func (s *Service) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return s.repo.GetPost(ctx, id)
}

// PostExists reports whether a post exists.
func (s *Service) PostExists(ctx context.Context, id string) (bool, error) {
	if _, err := s.repo.GetPost(ctx, id); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreatePost creates a post authored by the caller.
func (s *Service) CreatePost(ctx context.Context, caller *domain.Principal, input CreateInput) (*domain.Post, error) {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource: access.ResourcePost,
		Action:   access.ActionCreate,
	}); err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:        strings.TrimSpace(input.Title),
		Content:      input.Content,
		ThumbnailURL: nonEmpty(input.ThumbnailURL),
		Featured:     input.Featured,
		AuthorID:     caller.UserID,
	}

	if err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	ctxlog.FromContext(ctx).Info("post created", "post_id", post.ID)
	return post, nil
}

// UpdatePost applies a partial update to a post.
func (s *Service) UpdatePost(ctx context.Context, caller *domain.Principal, id string, input UpdateInput) (*domain.Post, error) {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource:   access.ResourcePost,
		Action:     access.ActionUpdate,
		ResourceID: id,
	}); err != nil {
		return nil, err
	}

	if input.empty() {
		return nil, ErrEmptyUpdate
	}

	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		post.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		post.Content = *input.Content
	}
	if input.ThumbnailURL != nil {
		post.ThumbnailURL = nonEmpty(input.ThumbnailURL)
	}
	if input.Featured != nil {
		post.Featured = *input.Featured
	}

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

// DeletePost deletes a post and its comments.
func (s *Service) DeletePost(ctx context.Context, caller *domain.Principal, id string) error {
	if err := s.authz.Authorize(ctx, caller, access.Request{
		Resource:   access.ResourcePost,
		Action:     access.ActionDelete,
		ResourceID: id,
	}); err != nil {
		return err
	}

	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Info("post deleted", "post_id", id)
	return nil
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
