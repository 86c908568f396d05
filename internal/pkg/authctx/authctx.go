// Package authctx carries the authenticated caller through a request context.
package authctx

import (
	"context"

	"github.com/bloghub/blog-api/internal/domain"
)

type ctxKey struct{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, or nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(ctxKey{}).(*domain.Principal); ok {
		return p
	}
	return nil
}
