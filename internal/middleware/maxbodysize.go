package middleware

import "net/http"

// NewMaxBodySizeHandler returns a middleware that limits incoming request body
// sizes to limit bytes. Requests advertising a larger Content-Length are
// rejected with 413 before reaching the next handler; other bodies are wrapped
// in http.MaxBytesReader so reads fail once the limit is passed.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
