// Package postgres provides PostgreSQL implementation of the posts repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/posts"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `id, title, content, thumbnail_url, featured, author_id, created_at, updated_at`

// Repository implements the posts.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreatePost creates a new post in the database.
func (r *Repository) CreatePost(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (title, content, thumbnail_url, featured, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		post.Title,
		post.Content,
		post.ThumbnailURL,
		post.Featured,
		post.AuthorID,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetPost retrieves a post by its ID.
func (r *Repository) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, posts.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListPosts retrieves posts matching the filter, newest first.
func (r *Repository) ListPosts(ctx context.Context, filter posts.ListFilter) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts`

	var conditions []string
	var args []interface{}

	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		conditions = append(conditions, fmt.Sprintf("featured = $%d", len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		result = append(result, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return result, nil
}

// UpdatePost updates an existing post.
func (r *Repository) UpdatePost(ctx context.Context, post *domain.Post) error {
	query := `
		UPDATE posts
		SET title = $2, content = $3, thumbnail_url = $4, featured = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		post.ID,
		post.Title,
		post.Content,
		post.ThumbnailURL,
		post.Featured,
	).Scan(&post.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return posts.ErrPostNotFound
		}
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeletePost deletes a post by its ID. Comments go with it via ON DELETE CASCADE.
func (r *Repository) DeletePost(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if result.RowsAffected() == 0 {
		return posts.ErrPostNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.ThumbnailURL,
		&post.Featured,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}
