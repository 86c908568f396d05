package httputil

import (
	"context"
	"net/http"
	"strings"

	"github.com/bloghub/blog-api/internal/domain"
	"github.com/bloghub/blog-api/internal/pkg/authctx"
	"github.com/bloghub/blog-api/internal/pkg/ctxlog"
)

// TokenValidator verifies a bearer token and returns the caller it names.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.Principal, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the verified principal in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				Error(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			principal, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				ctxlog.FromContext(r.Context()).Debug("token rejected", "error", err)
				Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := authctx.WithPrincipal(r.Context(), principal)
			ctx = ctxlog.With(ctx, "user_id", principal.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole creates RBAC middleware. It must run after AuthMiddleware.
func RequireRole(minRole domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := authctx.PrincipalFromContext(r.Context())
			if principal == nil {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !principal.Role.HasPermission(minRole) {
				Error(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
