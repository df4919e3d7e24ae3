package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/middleware"
)

// SignInRequest is the body of POST /auth/sign-in.
type SignInRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// SignInResponse carries the bearer token for later requests.
type SignInResponse struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignIn handles POST /auth/sign-in.
func (s *Server) SignIn(w http.ResponseWriter, r *http.Request) {
	var body SignInRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, token, exp, err := s.auth.SignIn(body.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SignInResponse{UserID: u.ID, Name: u.Name, Token: token, ExpiresAt: exp})
}

// SignOut handles POST /auth/sign-out. The caller's token stops working
// immediately.
func (s *Server) SignOut(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		s.writeError(w, r, domain.ErrUnauthenticated)
		return
	}
	if err := s.auth.SignOut(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
