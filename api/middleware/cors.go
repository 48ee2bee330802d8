package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the browser origin policy. With no configured origins only the local
// frontend dev servers are trusted.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader, correlationIDHeader},
		ExposedHeaders: []string{requestIDHeader, idempotencyReplayed, "Retry-After"},
		// bearer tokens only; no cookies
		AllowCredentials: false,
		MaxAge:           600,
	})
}
