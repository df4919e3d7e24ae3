package handler

import (
	"net/http"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/identity"
	"github.com/pkordes/tabinico/internal/store"
)

// TripResponse is the wire form of a trip. Date is a calendar date.
type TripResponse struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Members       []string              `json:"members"`
	Date          *openapi_types.Date   `json:"date"`
	Image         *string               `json:"image"`
	Duration      int                   `json:"duration"`
	Schedule      []domain.ScheduleItem `json:"schedule"`
	CheckList     []domain.PackingItem  `json:"checkList"`
	CheckListTabs []string              `json:"checkListTabs"`
	Expenses      []domain.Expense      `json:"expenses"`
	Scraps        []domain.ScrapItem    `json:"scraps"`
}

// CreateTripRequest is the onboarding form.
type CreateTripRequest struct {
	Title    string              `json:"title" validate:"required,max=100"`
	Members  []string            `json:"members" validate:"required,min=1,max=20,dive,required,max=50"`
	Date     *openapi_types.Date `json:"date"`
	Image    *string             `json:"image" validate:"omitempty,url"`
	Duration int                 `json:"duration" validate:"omitempty,min=1,max=60"`
}

// UpdateTripRequest changes trip settings. Absent fields are left alone;
// date and image may be set to null to clear them.
type UpdateTripRequest struct {
	Title    *string                      `json:"title" validate:"omitempty,max=100"`
	Members  []string                     `json:"members" validate:"omitempty,max=20,dive,required,max=50"`
	Date     nullable[openapi_types.Date] `json:"date"`
	Image    nullable[string]             `json:"image"`
	Duration *int                         `json:"duration" validate:"omitempty,min=1,max=60"`
}

// SessionResponse tells the client who it is and what it is looking at.
type SessionResponse struct {
	UserID *string `json:"userId"`
	Name   *string `json:"name"`
	TripID *string `json:"tripId"`
}

// CreateTripResponse carries the share code of the new trip.
type CreateTripResponse struct {
	TripID string       `json:"tripId"`
	Trip   TripResponse `json:"trip"`
}

// DaysResponse reports the trip length after adding a day.
type DaysResponse struct {
	Duration int `json:"duration"`
}

// GetSession handles GET /session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var resp SessionResponse
	if u, ok := identity.FromContext(r.Context()); ok {
		resp.UserID, resp.Name = &u.ID, &u.Name
	}
	if id := st.TripID(); id != "" {
		resp.TripID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body CreateTripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	in := domain.NewTrip{
		Title:    body.Title,
		Members:  body.Members,
		Date:     dateToTime(body.Date),
		Image:    body.Image,
		Duration: body.Duration,
	}
	id, err := st.CreateTrip(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	trip, err := st.Current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateTripResponse{TripID: id, Trip: tripToResponse(trip)})
}

// JoinTrip handles POST /trips/{id}/join.
func (s *Server) JoinTrip(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "id", &id); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.JoinTrip(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTrip(w, r, st, http.StatusOK)
}

// GetTrip handles GET /trip.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request, st *store.Store) {
	s.writeTrip(w, r, st, http.StatusOK)
}

// UpdateTrip handles PATCH /trip.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body UpdateTripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := st.UpdateTrip(updateToPatch(body)); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeTrip(w, r, st, http.StatusOK)
}

// ResetTrip handles DELETE /trip. Signed-in users leave their trip; the
// anonymous session wipes the demo trip.
func (s *Server) ResetTrip(w http.ResponseWriter, r *http.Request, st *store.Store) {
	if err := st.ResetTrip(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddDay handles POST /trip/days.
func (s *Server) AddDay(w http.ResponseWriter, r *http.Request, st *store.Store) {
	days, err := st.AddDay()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Duration: days})
}

func (s *Server) writeTrip(w http.ResponseWriter, r *http.Request, st *store.Store, status int) {
	trip, err := st.Current()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, status, tripToResponse(trip))
}

// --- mapping helpers --------------------------------------------------------

func updateToPatch(body UpdateTripRequest) domain.TripPatch {
	p := domain.TripPatch{}
	if body.Title != nil {
		p = p.WithTitle(*body.Title)
	}
	if body.Members != nil {
		p = p.WithMembers(body.Members)
	}
	if body.Date.Set {
		p = p.WithDate(dateToTime(body.Date.Value))
	}
	if body.Image.Set {
		p = p.WithImage(body.Image.Value)
	}
	if body.Duration != nil {
		p = p.WithDuration(*body.Duration)
	}
	return p
}

// tripToResponse converts a domain.Trip into its wire form.
func tripToResponse(t domain.Trip) TripResponse {
	resp := TripResponse{
		ID:            t.ID,
		Title:         t.Title,
		Members:       t.Members,
		Image:         t.Image,
		Duration:      t.Duration,
		Schedule:      t.Schedule,
		CheckList:     t.CheckList,
		CheckListTabs: t.CheckListTabs,
		Expenses:      t.Expenses,
		Scraps:        t.Scraps,
	}
	if t.Date != nil {
		resp.Date = &openapi_types.Date{Time: *t.Date}
	}
	return resp
}

func dateToTime(d *openapi_types.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
