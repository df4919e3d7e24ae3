package handler

import (
	"net/http"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/store"
)

// ScrapRequest is the body for pinning or editing a scrap card. AddedBy
// defaults to the signed-in user's name and is ignored on edits.
type ScrapRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	URL         string `json:"url" validate:"omitempty,url"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=50"`
	AddedBy     string `json:"addedBy" validate:"max=50"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	SiteName    string `json:"siteName" validate:"max=100"`
	WantToGo    bool   `json:"wantToGo"`
}

// WantToGoResponse reports the new favourite flag of a scrap.
type WantToGoResponse struct {
	WantToGo bool `json:"wantToGo"`
}

// AddScrap handles POST /trip/scraps.
func (s *Server) AddScrap(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body ScrapRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item := body.toScrap("")
	if item.AddedBy == "" {
		if u, ok := identity.FromContext(r.Context()); ok {
			item.AddedBy = u.Name
		}
	}
	created, err := st.AddScrap(item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ReplaceScrap handles PUT /trip/scraps/{scrapId}.
func (s *Server) ReplaceScrap(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "scrapId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	var body ScrapRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.ReplaceScrap(body.toScrap(id)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteScrap handles DELETE /trip/scraps/{scrapId}.
func (s *Server) DeleteScrap(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "scrapId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.DeleteScrap(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleWantToGo handles POST /trip/scraps/{scrapId}/want-to-go.
func (s *Server) ToggleWantToGo(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "scrapId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	want, err := st.ToggleWantToGo(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WantToGoResponse{WantToGo: want})
}

func (b ScrapRequest) toScrap(id string) domain.ScrapItem {
	return domain.ScrapItem{
		ID:          id,
		Title:       b.Title,
		URL:         b.URL,
		Description: b.Description,
		Category:    b.Category,
		AddedBy:     b.AddedBy,
		ImageURL:    b.ImageURL,
		SiteName:    b.SiteName,
		WantToGo:    b.WantToGo,
	}
}
