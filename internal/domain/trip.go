// Package domain contains the core data types for the Tabinico trip planner.
// This package only depends on google/uuid and is imported by every other
// internal package (repo, store, handler).
package domain

import (
	"time"
)

// Trip is the root aggregate: one shared planning document per group of
// travellers. Every child collection is embedded in the document; there is
// no owner field, any holder of the ID can read and write it.
type Trip struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Members       []string       `json:"members"`
	Date          *time.Time     `json:"date"`  // nil when the date is undecided
	Image         *string        `json:"image"` // cover image URL
	Duration      int            `json:"duration"`
	Schedule      []ScheduleItem `json:"schedule"`
	CheckList     []PackingItem  `json:"checkList"`
	CheckListTabs []string       `json:"checkListTabs"`
	Expenses      []Expense      `json:"expenses"`
	Scraps        []ScrapItem    `json:"scraps"`
}

// Snapshot is one emission of a live trip subscription.
// Exists is false when the document is missing (deleted or never created).
type Snapshot struct {
	Trip   Trip
	Exists bool
}

// NewTrip carries the fields collected by the onboarding flow.
type NewTrip struct {
	Title    string
	Members  []string
	Date     *time.Time
	Image    *string
	Duration int
}

// Build returns the initial document for a freshly created trip.
// Duration is clamped to at least one day; all child collections start empty.
func (n NewTrip) Build(id string) Trip {
	t := EmptyTrip(id)
	t.Title = n.Title
	t.Members = append([]string{}, n.Members...)
	t.Date = n.Date
	t.Image = n.Image
	if n.Duration > 1 {
		t.Duration = n.Duration
	}
	return t
}

// EmptyTrip returns a document with no content: what the demo trip looks
// like after a reset.
func EmptyTrip(id string) Trip {
	return Trip{
		ID:            id,
		Members:       []string{},
		Duration:      1,
		Schedule:      []ScheduleItem{},
		CheckList:     []PackingItem{},
		CheckListTabs: []string{},
		Expenses:      []Expense{},
		Scraps:        []ScrapItem{},
	}
}

// Normalize replaces nil collections with empty ones and enforces the
// minimum duration, so documents written by older clients behave like new ones.
func (t Trip) Normalize() Trip {
	if t.Members == nil {
		t.Members = []string{}
	}
	if t.Schedule == nil {
		t.Schedule = []ScheduleItem{}
	}
	if t.CheckList == nil {
		t.CheckList = []PackingItem{}
	}
	if t.CheckListTabs == nil {
		t.CheckListTabs = []string{}
	}
	if t.Expenses == nil {
		t.Expenses = []Expense{}
	}
	if t.Scraps == nil {
		t.Scraps = []ScrapItem{}
	}
	if t.Duration < 1 {
		t.Duration = 1
	}
	return t
}

// Clone returns a deep copy so callers can hand state out without sharing
// backing arrays with the store.
func (t Trip) Clone() Trip {
	c := t
	c.Members = append([]string(nil), t.Members...)
	c.CheckListTabs = append([]string(nil), t.CheckListTabs...)
	c.CheckList = append([]PackingItem(nil), t.CheckList...)
	c.Scraps = append([]ScrapItem(nil), t.Scraps...)
	if t.Date != nil {
		d := *t.Date
		c.Date = &d
	}
	if t.Image != nil {
		img := *t.Image
		c.Image = &img
	}
	c.Schedule = make([]ScheduleItem, len(t.Schedule))
	for i, item := range t.Schedule {
		item.Attachments = append([]Attachment(nil), item.Attachments...)
		c.Schedule[i] = item
	}
	c.Expenses = make([]Expense, len(t.Expenses))
	for i, e := range t.Expenses {
		e.Items = append([]string(nil), e.Items...)
		c.Expenses[i] = e
	}
	return c.Normalize()
}
