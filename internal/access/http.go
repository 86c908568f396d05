package access

import (
	"net/http"

	"github.com/bloghub/blog-api/internal/pkg/httputil"
)

// ErrorMappings returns the HTTP mappings for access errors.
// Handlers append them to their own mappings.
func ErrorMappings() []httputil.ErrorMapping {
	return []httputil.ErrorMapping{
		{Error: ErrUnauthenticated, Status: http.StatusUnauthorized},
		{Error: ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		{Error: ErrResourceNotFound, Status: http.StatusNotFound},
	}
}
