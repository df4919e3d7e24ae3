package handler

import (
	"net/http"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/store"
)

// PackingItemRequest is the body of POST /trip/checklist. AssignedTo is a
// member name, "common" or "extra"; empty means "common".
type PackingItemRequest struct {
	Item       string `json:"item" validate:"required,max=100"`
	AssignedTo string `json:"assignedTo" validate:"max=50"`
}

// CheckListTabsRequest is the body of PUT /trip/checklist-tabs.
type CheckListTabsRequest struct {
	Tabs []string `json:"tabs" validate:"required,max=30,dive,required,max=50"`
}

// CheckListResponse lists the tabs and the items under the requested one.
type CheckListResponse struct {
	Tabs []string             `json:"tabs"`
	Data []domain.PackingItem `json:"data"`
}

// ToggleResponse reports the new state of a packing item.
type ToggleResponse struct {
	Checked bool `json:"checked"`
}

// ListPacking handles GET /trip/checklist?tab=. Without a tab every item is
// returned.
func (s *Server) ListPacking(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var tab *string
	if err := queryParam(r, "tab", false, &tab); err != nil {
		s.writeError(w, r, err)
		return
	}

	tabs, err := st.CheckListTabs()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var items []domain.PackingItem
	if tab != nil {
		items, err = st.PackingList(*tab)
	} else {
		var t domain.Trip
		t, err = st.Current()
		items = t.CheckList
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckListResponse{Tabs: tabs, Data: items})
}

// AddPackingItem handles POST /trip/checklist.
func (s *Server) AddPackingItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body PackingItemRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := st.AddPackingItem(body.Item, body.AssignedTo)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// TogglePackingItem handles POST /trip/checklist/{itemId}/toggle.
func (s *Server) TogglePackingItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "itemId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}

	checked, err := st.TogglePackingItem(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Checked: checked})
}

// DeletePackingItem handles DELETE /trip/checklist/{itemId}.
func (s *Server) DeletePackingItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "itemId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.DeletePackingItem(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCheckListTabs handles PUT /trip/checklist-tabs.
func (s *Server) SetCheckListTabs(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body CheckListTabsRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.SetCheckListTabs(body.Tabs); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckListResponse{Tabs: body.Tabs, Data: []domain.PackingItem{}})
}
