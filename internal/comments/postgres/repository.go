// Package postgres provides PostgreSQL implementation of the comments repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bloghub/blog-api/internal/comments"
	"github.com/bloghub/blog-api/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const foreignKeyViolation = "23503"

const commentColumns = `id, post_id, author_id, content, created_at, updated_at`

// Repository implements the comments.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateComment creates a new comment. A post deleted concurrently yields comments.ErrPostNotFound.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (post_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		comment.PostID,
		comment.AuthorID,
		comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return comments.ErrPostNotFound
		}
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by its ID.
func (r *Repository) GetComment(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, comments.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return comment, nil
}

// ListByPost retrieves the comments of a post, oldest first.
func (r *Repository) ListByPost(ctx context.Context, postID string) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = $1 ORDER BY created_at, id`
	return r.list(ctx, query, postID)
}

// ListByAuthor retrieves the comments of an author, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID string) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE author_id = $1 ORDER BY created_at DESC, id`
	return r.list(ctx, query, authorID)
}

// UpdateComment updates the content of a comment.
func (r *Repository) UpdateComment(ctx context.Context, comment *domain.Comment) error {
	query := `
		UPDATE comments
		SET content = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, comment.ID, comment.Content).Scan(&comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comments.ErrCommentNotFound
		}
		return fmt.Errorf("update comment: %w", err)
	}
	return nil
}

// DeleteComment deletes a comment by its ID.
func (r *Repository) DeleteComment(ctx context.Context, id string) error {
	query := `DELETE FROM comments WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return comments.ErrCommentNotFound
	}
	return nil
}

func (r *Repository) list(ctx context.Context, query string, arg string) ([]domain.Comment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		result = append(result, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return result, nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	err := row.Scan(
		&comment.ID,
		&comment.PostID,
		&comment.AuthorID,
		&comment.Content,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
