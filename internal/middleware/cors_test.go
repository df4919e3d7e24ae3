package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/middleware"
)

// trivialHandler is a minimal http.Handler that always returns 200.
var trivialHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSHandler_GET_AllowedOrigin(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trip", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

// TestCORSHandler_OPTIONS_PatchPreflight checks the preflight a browser sends
// before PATCH /trip with a bearer token.
func TestCORSHandler_OPTIONS_PatchPreflight(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(trivialHandler)

	req := httptest.NewRequest(http.MethodOptions, "/trip", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	// rs/cors compares requested headers in lowercase, as browsers send them.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, rec.Code == http.StatusNoContent || rec.Code == http.StatusOK,
		"expected 2xx for OPTIONS preflight, got %d", rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestCORSHandler_GET_DisallowedOrigin(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trip", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

// The export download name is only readable by the browser when exposed.
func TestCORSHandler_ExposesContentDisposition(t *testing.T) {
	h := middleware.NewCORSHandler([]string{"http://localhost:5173"})(trivialHandler)

	req := httptest.NewRequest(http.MethodGet, "/trip/expenses/export?format=csv", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "Content-Disposition", rec.Header().Get("Access-Control-Expose-Headers"))
}
