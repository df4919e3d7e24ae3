package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/tabinico/internal/identity"
)

// userRecorder lets the logger see the caller resolved further down the
// chain, since the authenticator attaches it to a derived request.
type userRecorder struct{ id string }

type userRecorderKey struct{}

// NewSlogLogger returns a middleware that logs each request as a structured
// JSON line via the provided slog.Logger. It captures method, path, HTTP
// status, duration, the request ID set by chi's RequestID middleware and the
// signed-in user, if any. 5xx responses are logged at error level.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &userRecorder{}
			r = r.WithContext(contextWithRecorder(r, rec))

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			if rec.id != "" {
				attrs = append(attrs, "user_id", rec.id)
			}
			log.Log(r.Context(), level, "request", attrs...)
		})
	}
}

func contextWithRecorder(r *http.Request, rec *userRecorder) context.Context {
	return context.WithValue(r.Context(), userRecorderKey{}, rec)
}

// recordUser notes the caller for the request log line.
func recordUser(ctx context.Context, u identity.User) {
	if rec, ok := ctx.Value(userRecorderKey{}).(*userRecorder); ok {
		rec.id = u.ID
	}
}
