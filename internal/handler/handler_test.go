package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/handler"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/receipt"
	"github.com/pkordes/tabinico/internal/repo"
	"github.com/pkordes/tabinico/internal/repo/memrepo"
	"github.com/pkordes/tabinico/internal/store"
)

const demoID = "DEMO00"

// ---- test doubles ----------------------------------------------------------

// mockUploader is a test double for handler.Uploader.
// Set upload to override the default success response.
type mockUploader struct {
	upload   func(ctx context.Context, filename string, r io.Reader) (domain.Attachment, error)
	maxBytes int64
	names    []string
}

func (m *mockUploader) Upload(ctx context.Context, filename string, r io.Reader) (domain.Attachment, error) {
	m.names = append(m.names, filename)
	if m.upload != nil {
		return m.upload(ctx, filename, r)
	}
	_, _ = io.Copy(io.Discard, r)
	return domain.Attachment{ID: "att-" + filename, Name: filename, URL: "https://files.test/" + filename, Type: domain.AttachmentImage}, nil
}

func (m *mockUploader) MaxBytes() int64 { return m.maxBytes }

// mockLive is a test double for handler.LiveHub that answers 200 instead of
// upgrading and releases immediately.
type mockLive struct {
	initial []domain.Trip
}

func (m *mockLive) Serve(w http.ResponseWriter, _ *http.Request, initial domain.Trip, release func()) error {
	m.initial = append(m.initial, initial)
	w.WriteHeader(http.StatusOK)
	release()
	return nil
}

// compile-time checks
var (
	_ handler.Uploader      = (*mockUploader)(nil)
	_ handler.LiveHub       = (*mockLive)(nil)
	_ handler.Sessions      = (*store.Manager)(nil)
	_ handler.Authenticator = (*identity.Issuer)(nil)
)

// firstSnapshotOnly stops live updates after the initial snapshot so
// responses reflect local state, without remote echoes of earlier writes.
type firstSnapshotOnly struct {
	repo.TripRepo
}

func (r firstSnapshotOnly) Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error) {
	live, err := r.TripRepo.Watch(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(chan domain.Snapshot, 1)
	go func() {
		defer close(out)
		first, ok := <-live
		if !ok {
			return
		}
		out <- first
		for range live {
		}
	}()
	return out, nil
}

// ---- harness ---------------------------------------------------------------

type testServer struct {
	h       http.Handler
	mem     *memrepo.Store
	mgr     *store.Manager
	issuer  *identity.Issuer
	uploads *mockUploader
	live    *mockLive
}

// newTestServer wires the real router over an in-memory trip store. This
// mirrors how main.go wires it in production.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memrepo.New()

	mgr := store.NewManager(store.Deps{
		Trips:    firstSnapshotOnly{TripRepo: mem.Trips()},
		Profiles: mem.Profiles(),
		Log:      log,
	}, store.Settings{DemoTripID: demoID, WriteTimeout: time.Second}, time.Hour)
	require.NoError(t, mgr.EnsureDemoTrip(context.Background()))
	t.Cleanup(mgr.Close)

	issuer := identity.NewIssuer("test-secret", time.Hour, identity.NewMemoryDenylist(nil), nil)
	ts := &testServer{
		mem:     mem,
		mgr:     mgr,
		issuer:  issuer,
		uploads: &mockUploader{maxBytes: 1 << 20},
		live:    &mockLive{},
	}
	srv := handler.NewServer(handler.Deps{
		Sessions: mgr,
		Auth:     issuer,
		Uploads:  ts.uploads,
		Scanner:  receipt.MockScanner{},
		Live:     ts.live,
		Log:      log,
	})
	ts.h = handler.NewRouter(srv, handler.RouterConfig{
		CORSOrigins: []string{"http://localhost:5173"},
		Verifier:    issuer,
	})
	return ts
}

// do sends a JSON request. token may be empty for anonymous calls; body may be nil.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart request with one "file" field.
func (ts *testServer) upload(t *testing.T, path, token, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.h.ServeHTTP(rec, req)
	return rec
}

// signIn returns a token for a fresh user.
func (ts *testServer) signIn(t *testing.T, name string) string {
	t.Helper()
	_, token, _, err := ts.issuer.SignIn(name)
	require.NoError(t, err)
	return token
}

// createTrip creates a trip as token's user and returns its ID.
func (ts *testServer) createTrip(t *testing.T, token string, members ...string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/trips", token, map[string]any{
		"title":    "Hokkaido",
		"members":  members,
		"date":     "2025-02-01",
		"duration": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp handler.CreateTripResponse
	decode(t, rec, &resp)
	return resp.TripID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body handler.ErrorResponse
	decode(t, rec, &body)
	return body.Error.Code
}
