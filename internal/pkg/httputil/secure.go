package httputil

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureHeadersMiddleware sets standard security response headers.
// In development mode HSTS is not sent.
func SecureHeadersMiddleware(isDevelopment bool) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		IsDevelopment:         isDevelopment,
	})
	return sm.Handler
}
