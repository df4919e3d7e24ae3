package middleware_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/middleware"
)

// mockVerifier is a test double for middleware.TokenVerifier.
type mockVerifier struct {
	verify func(ctx context.Context, token string) (identity.User, *identity.Claims, error)
	calls  []string
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (identity.User, *identity.Claims, error) {
	m.calls = append(m.calls, token)
	return m.verify(ctx, token)
}

var _ middleware.TokenVerifier = (*mockVerifier)(nil)

var discardLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// whoAmI writes the caller's user ID, or "anonymous".
var whoAmI = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if u, ok := identity.FromContext(r.Context()); ok {
		_, _ = io.WriteString(w, u.ID)
		return
	}
	_, _ = io.WriteString(w, "anonymous")
})

func TestAuthenticator_NoTokenIsAnonymous(t *testing.T) {
	v := &mockVerifier{}
	h := middleware.NewAuthenticator(v, discardLog)(whoAmI)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trip", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
	assert.Empty(t, v.calls, "verifier is not consulted without a token")
}

func TestAuthenticator_ValidToken(t *testing.T) {
	v := &mockVerifier{verify: func(_ context.Context, token string) (identity.User, *identity.Claims, error) {
		return identity.User{ID: "user-1"}, &identity.Claims{}, nil
	}}
	h := middleware.NewAuthenticator(v, discardLog)(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/trip", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
	assert.Equal(t, []string{"abc.def.ghi"}, v.calls)
}

func TestAuthenticator_InvalidTokenIs401(t *testing.T) {
	v := &mockVerifier{verify: func(context.Context, string) (identity.User, *identity.Claims, error) {
		return identity.User{}, nil, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
	}}
	h := middleware.NewAuthenticator(v, discardLog)(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/trip", nil)
	req.Header.Set("Authorization", "Bearer stale")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"unauthenticated","message":"invalid or expired token"}}`, rec.Body.String())
}

func TestAuthenticator_VerifierFailureIs500(t *testing.T) {
	v := &mockVerifier{verify: func(context.Context, string) (identity.User, *identity.Claims, error) {
		return identity.User{}, nil, errors.New("redis: connection refused")
	}}
	h := middleware.NewAuthenticator(v, discardLog)(whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/trip", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{"bearer header", "Bearer abc", "", "abc"},
		{"case insensitive scheme", "bearer abc", "", "abc"},
		{"other scheme", "Basic dXNlcg==", "", ""},
		{"query parameter", "", "?access_token=xyz", "xyz"},
		{"header wins over query", "Bearer abc", "?access_token=xyz", "abc"},
		{"none", "", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trip/live"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			assert.Equal(t, tc.want, middleware.BearerToken(req))
		})
	}
}
