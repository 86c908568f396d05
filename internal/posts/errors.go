package posts

import "errors"

// Post errors.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrEmptyUpdate  = errors.New("no fields to update")
)
