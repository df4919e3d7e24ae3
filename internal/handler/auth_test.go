package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/handler"
)

func TestSignIn_201(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/sign-in", "", map[string]any{"name": "Aki"})

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp handler.SignInResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "Aki", resp.Name)
	assert.NotEmpty(t, resp.Token)

	rec = ts.do(t, http.MethodGet, "/session", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess handler.SessionResponse
	decode(t, rec, &sess)
	require.NotNil(t, sess.UserID)
	assert.Equal(t, resp.UserID, *sess.UserID)
}

func TestSignIn_422_MissingName(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/sign-in", "", map[string]any{})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestSignOut_RevokesToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.signIn(t, "Aki")

	rec := ts.do(t, http.MethodPost, "/auth/sign-out", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a revoked token is rejected")
}

func TestSignOut_401_WithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/auth/sign-out", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
