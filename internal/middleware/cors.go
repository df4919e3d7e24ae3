// Package middleware provides reusable HTTP middleware for the Tabinico API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSHandler returns a middleware that applies CORS headers based on allowedOrigins.
// Each entry in allowedOrigins must be a full origin (scheme + host, no trailing slash).
// PATCH is allowed for partial trip updates; Authorization carries the session token.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
	})
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
