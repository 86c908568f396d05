package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
)

// ErrorMapping maps a sentinel error to a status code. An empty Message
// exposes err.Error() to the client.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// HandleError writes the response for the first mapping err matches.
// Unmapped errors are logged and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	status, msg := resolveError(err, mappings)

	logger := ctxlog.FromContext(ctx)
	switch {
	case status == http.StatusInternalServerError:
		logger.Error("internal error", "error", err)
	case status >= http.StatusInternalServerError:
		logger.Warn("upstream error", "status", status, "error", err)
	default:
		logger.Debug("request rejected", "status", status, "error", err)
	}

	Error(w, status, msg)
}

func resolveError(err error, mappings []ErrorMapping) (int, string) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		if m.Message != "" {
			return m.Status, m.Message
		}
		return m.Status, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}
