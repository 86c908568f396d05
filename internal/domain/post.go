package domain

import "time"

// Post is a blog article. Mutations are restricted to admins.
type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	Featured     bool      `json:"featured"`
	AuthorID     string    `json:"author_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
