package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/identity"
)

// TokenVerifier checks a bearer token. *identity.Issuer satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.User, *identity.Claims, error)
}

// NewAuthenticator returns a middleware that resolves the optional bearer
// token. Requests without one continue as anonymous (the demo session);
// requests with an invalid or revoked token get 401.
//
// Browsers cannot set headers on websocket upgrades, so an access_token
// query parameter is accepted as well.
func NewAuthenticator(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			u, _, err := v.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
					return
				}
				log.ErrorContext(r.Context(), "token verification failed", "error", err)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
				return
			}

			recordUser(r.Context(), u)
			next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), u)))
		})
	}
}

// BearerToken returns the token from the Authorization header or the
// access_token query parameter, or "".
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
