package httputil

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

const corsMaxAge = 24 * time.Hour

// CORSOptions returns the API's CORS policy for the given origins.
// Bearer tokens travel in a header, so credentials are never allowed.
// A "*" entry allows any origin.
func CORSOptions(allowedOrigins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           int(corsMaxAge.Seconds()),
	}
}

// CORSMiddleware applies CORSOptions and answers preflight requests.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(CORSOptions(allowedOrigins))
}
