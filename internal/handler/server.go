// Package handler implements the HTTP handlers for the Tabinico API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, schedule.go, wallet.go, ...) but share the same Server
// struct so they can reach the caller's trip store.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/receipt"
	"github.com/pkordes/tabinico/internal/store"
)

// Sessions hands out the trip store of a caller. *store.Manager satisfies it.
type Sessions interface {
	For(ctx context.Context, userID string) (*store.Store, error)
}

// Authenticator issues and revokes session tokens. *identity.Issuer satisfies it.
type Authenticator interface {
	SignIn(name string) (identity.User, string, time.Time, error)
	SignOut(ctx context.Context, token string) error
}

// Uploader stores attachment files. *upload.Service satisfies it.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (domain.Attachment, error)
	MaxBytes() int64
}

// LiveHub streams trip snapshots over a websocket. *realtime.Hub satisfies it.
type LiveHub interface {
	Serve(w http.ResponseWriter, r *http.Request, initial domain.Trip, release func()) error
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Sessions Sessions
	Auth     Authenticator
	Uploads  Uploader
	Scanner  receipt.Scanner
	Live     LiveHub
	Log      *slog.Logger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	sessions Sessions
	auth     Authenticator
	uploads  Uploader
	scanner  receipt.Scanner
	live     LiveHub
	log      *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Server{
		sessions: d.Sessions,
		auth:     d.Auth,
		uploads:  d.Uploads,
		scanner:  d.Scanner,
		live:     d.Live,
		log:      d.Log,
	}
}

// session returns the store of the caller: the signed-in user's, or the
// shared anonymous one.
func (s *Server) session(r *http.Request) (*store.Store, error) {
	u, _ := identity.FromContext(r.Context())
	return s.sessions.For(r.Context(), u.ID)
}

// withStore resolves the caller's store and passes it to fn, writing the
// error response if the store cannot be opened.
func (s *Server) withStore(fn func(w http.ResponseWriter, r *http.Request, st *store.Store)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.session(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		fn(w, r, st)
	}
}
