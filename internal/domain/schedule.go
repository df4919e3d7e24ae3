package domain

import (
	"sort"

	"github.com/google/uuid"
)

// ScheduleItem is one itinerary entry.
// Day is 1-based and only advisory: it is never cross-checked against
// Trip.Duration. Time and EndTime are "HH:MM" strings, which sort lexically.
type ScheduleItem struct {
	ID          string       `json:"id"`
	Day         int          `json:"day"`
	Time        string       `json:"time"`
	EndTime     string       `json:"endTime,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location,omitempty"`
	Address     string       `json:"address,omitempty"`
	Link        string       `json:"link,omitempty"`
	Image       string       `json:"image,omitempty"`
	Budget      *int64       `json:"budget,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a file uploaded for a schedule item. Immutable once created.
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"` // "pdf" or "image"
}

// Attachment type tags.
const (
	AttachmentPDF   = "pdf"
	AttachmentImage = "image"
)

// NewID returns a random identifier for child records.
func NewID() string {
	return uuid.NewString()
}

// DaySchedule returns the items planned for day, ordered by start time.
// Items sharing a start time keep their insertion order.
func DaySchedule(items []ScheduleItem, day int) []ScheduleItem {
	out := []ScheduleItem{}
	for _, it := range items {
		if it.Day == day {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}
