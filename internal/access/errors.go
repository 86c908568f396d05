package access

import "errors"

// Access errors.
var (
	ErrNoPolicy         = errors.New("no access policy for resource and action")
	ErrResourceNotFound = errors.New("resource not found")
	ErrUnauthenticated  = errors.New("authentication required")
	ErrForbidden        = errors.New("insufficient permissions")
)
