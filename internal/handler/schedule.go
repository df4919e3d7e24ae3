package handler

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/store"
)

// ScheduleItemRequest is the body for adding or replacing a schedule item.
// Day may exceed the trip duration.
type ScheduleItemRequest struct {
	Day         int    `json:"day" validate:"required,min=1"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	EndTime     string `json:"endTime" validate:"omitempty,datetime=15:04"`
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Location    string `json:"location" validate:"max=200"`
	Address     string `json:"address" validate:"max=300"`
	Link        string `json:"link" validate:"omitempty,url"`
	Image       string `json:"image" validate:"omitempty,url"`
	Budget      *int64 `json:"budget" validate:"omitempty,min=0"`
}

// ListResponse wraps a plain list.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}

// ListSchedule handles GET /trip/schedule?day=N.
func (s *Server) ListSchedule(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var day int
	if err := queryParam(r, "day", true, &day); err != nil {
		s.writeError(w, r, err)
		return
	}

	items, err := st.DaySchedule(day)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.ScheduleItem]{Data: items})
}

// AddScheduleItem handles POST /trip/schedule.
func (s *Server) AddScheduleItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body ScheduleItemRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := st.AddScheduleItem(body.toItem(""))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ReplaceScheduleItem handles PUT /trip/schedule/{itemId}. Attachments are
// managed through their own routes and survive the replace.
func (s *Server) ReplaceScheduleItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "itemId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	var body ScheduleItemRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	item := body.toItem(id)
	if err := st.ReplaceScheduleItem(item); err != nil {
		s.writeError(w, r, err)
		return
	}
	if stored, ok := findScheduleItem(st, id); ok {
		item = stored
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteScheduleItem handles DELETE /trip/schedule/{itemId}.
func (s *Server) DeleteScheduleItem(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "itemId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.DeleteScheduleItem(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAttachment handles POST /trip/schedule/{itemId}/attachments with a
// multipart "file" field. The item is checked before anything is uploaded.
func (s *Server) AddAttachment(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var id string
	if err := pathParam(r, "itemId", &id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := st.Current(); err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, ok := findScheduleItem(st, id); !ok {
		s.writeError(w, r, fmt.Errorf("%w: schedule item %q", domain.ErrNotFound, id))
		return
	}

	att, err := s.uploadFormFile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.AddAttachment(id, att); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

// RemoveAttachment handles DELETE /trip/schedule/{itemId}/attachments/{attachmentId}.
func (s *Server) RemoveAttachment(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var itemID, attID string
	if err := pathParam(r, "itemId", &itemID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := pathParam(r, "attachmentId", &attID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := st.RemoveAttachment(itemID, attID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadFormFile stores the multipart "file" field through the Uploader.
func (s *Server) uploadFormFile(r *http.Request) (domain.Attachment, error) {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			return domain.Attachment{}, err
		}
		return domain.Attachment{}, fmt.Errorf("%w: multipart field \"file\" is required", domain.ErrValidation)
	}
	defer file.Close()

	return s.uploads.Upload(r.Context(), hdr.Filename, file)
}

func findScheduleItem(st *store.Store, id string) (domain.ScheduleItem, bool) {
	t, err := st.Current()
	if err != nil {
		return domain.ScheduleItem{}, false
	}
	i := slices.IndexFunc(t.Schedule, func(it domain.ScheduleItem) bool { return it.ID == id })
	if i < 0 {
		return domain.ScheduleItem{}, false
	}
	return t.Schedule[i], true
}

func (b ScheduleItemRequest) toItem(id string) domain.ScheduleItem {
	return domain.ScheduleItem{
		ID:          id,
		Day:         b.Day,
		Time:        b.Time,
		EndTime:     b.EndTime,
		Title:       b.Title,
		Description: b.Description,
		Location:    b.Location,
		Address:     b.Address,
		Link:        b.Link,
		Image:       b.Image,
		Budget:      b.Budget,
	}
}
