package fsrepo

import (
	"time"

	"github.com/pkordes/tabinico/internal/domain"
)

// tripDoc is the Firestore shape of a trip, stored in the "trips" collection
// under the trip ID. Field names match the JSON API so documents written by
// either side read the same.
type tripDoc struct {
	ID            string        `firestore:"id"`
	Title         string        `firestore:"title"`
	Members       []string      `firestore:"members"`
	Date          *time.Time    `firestore:"date"`
	Image         *string       `firestore:"image"`
	Duration      int           `firestore:"duration"`
	Schedule      []scheduleDoc `firestore:"schedule"`
	CheckList     []packingDoc  `firestore:"checkList"`
	CheckListTabs []string      `firestore:"checkListTabs"`
	Expenses      []expenseDoc  `firestore:"expenses"`
	Scraps        []scrapDoc    `firestore:"scraps"`
}

type scheduleDoc struct {
	ID          string          `firestore:"id"`
	Day         int             `firestore:"day"`
	Time        string          `firestore:"time"`
	EndTime     string          `firestore:"endTime,omitempty"`
	Title       string          `firestore:"title"`
	Description string          `firestore:"description"`
	Location    string          `firestore:"location,omitempty"`
	Address     string          `firestore:"address,omitempty"`
	Link        string          `firestore:"link,omitempty"`
	Image       string          `firestore:"image,omitempty"`
	Budget      *int64          `firestore:"budget,omitempty"`
	Attachments []attachmentDoc `firestore:"attachments,omitempty"`
}

type attachmentDoc struct {
	ID   string `firestore:"id"`
	Name string `firestore:"name"`
	URL  string `firestore:"url"`
	Type string `firestore:"type"`
}

type packingDoc struct {
	ID         string `firestore:"id"`
	Item       string `firestore:"item"`
	AssignedTo string `firestore:"assignedTo"`
	Checked    bool   `firestore:"checked"`
}

type expenseDoc struct {
	ID         string    `firestore:"id"`
	Amount     int64     `firestore:"amount"`
	Category   string    `firestore:"category"`
	PaidBy     string    `firestore:"paidBy"`
	Items      []string  `firestore:"items,omitempty"`
	ReceiptURL string    `firestore:"receiptUrl,omitempty"`
	Date       time.Time `firestore:"date"`
	ShopName   string    `firestore:"shopName"`
	Settled    bool      `firestore:"settled,omitempty"`
}

type scrapDoc struct {
	ID          string    `firestore:"id"`
	Title       string    `firestore:"title"`
	URL         string    `firestore:"url"`
	Description string    `firestore:"description"`
	Category    string    `firestore:"category"`
	AddedBy     string    `firestore:"addedBy"`
	AddedAt     time.Time `firestore:"addedAt"`
	ImageURL    string    `firestore:"imageUrl,omitempty"`
	SiteName    string    `firestore:"siteName,omitempty"`
	WantToGo    bool      `firestore:"wantToGo"`
}

// profileDoc lives in the "users" collection under the user ID.
type profileDoc struct {
	ActiveTripID string `firestore:"activeTripId,omitempty"`
}

func toTripDoc(t domain.Trip) tripDoc {
	return tripDoc{
		ID:            t.ID,
		Title:         t.Title,
		Members:       t.Members,
		Date:          t.Date,
		Image:         t.Image,
		Duration:      t.Duration,
		Schedule:      toScheduleDocs(t.Schedule),
		CheckList:     toPackingDocs(t.CheckList),
		CheckListTabs: t.CheckListTabs,
		Expenses:      toExpenseDocs(t.Expenses),
		Scraps:        toScrapDocs(t.Scraps),
	}
}

func (d tripDoc) toDomain(id string) domain.Trip {
	t := domain.Trip{
		ID:            id,
		Title:         d.Title,
		Members:       d.Members,
		Date:          d.Date,
		Image:         d.Image,
		Duration:      d.Duration,
		CheckListTabs: d.CheckListTabs,
	}
	for _, s := range d.Schedule {
		item := domain.ScheduleItem{
			ID: s.ID, Day: s.Day, Time: s.Time, EndTime: s.EndTime,
			Title: s.Title, Description: s.Description, Location: s.Location,
			Address: s.Address, Link: s.Link, Image: s.Image, Budget: s.Budget,
		}
		for _, a := range s.Attachments {
			item.Attachments = append(item.Attachments, domain.Attachment(a))
		}
		t.Schedule = append(t.Schedule, item)
	}
	for _, p := range d.CheckList {
		t.CheckList = append(t.CheckList, domain.PackingItem(p))
	}
	for _, e := range d.Expenses {
		t.Expenses = append(t.Expenses, domain.Expense(e))
	}
	for _, s := range d.Scraps {
		t.Scraps = append(t.Scraps, domain.ScrapItem(s))
	}
	return t.Normalize()
}

func toScheduleDocs(items []domain.ScheduleItem) []scheduleDoc {
	out := make([]scheduleDoc, 0, len(items))
	for _, s := range items {
		doc := scheduleDoc{
			ID: s.ID, Day: s.Day, Time: s.Time, EndTime: s.EndTime,
			Title: s.Title, Description: s.Description, Location: s.Location,
			Address: s.Address, Link: s.Link, Image: s.Image, Budget: s.Budget,
		}
		for _, a := range s.Attachments {
			doc.Attachments = append(doc.Attachments, attachmentDoc(a))
		}
		out = append(out, doc)
	}
	return out
}

func toPackingDocs(items []domain.PackingItem) []packingDoc {
	out := make([]packingDoc, 0, len(items))
	for _, p := range items {
		out = append(out, packingDoc(p))
	}
	return out
}

func toExpenseDocs(items []domain.Expense) []expenseDoc {
	out := make([]expenseDoc, 0, len(items))
	for _, e := range items {
		out = append(out, expenseDoc(e))
	}
	return out
}

func toScrapDocs(items []domain.ScrapItem) []scrapDoc {
	out := make([]scrapDoc, 0, len(items))
	for _, s := range items {
		out = append(out, scrapDoc(s))
	}
	return out
}

// patchData converts a patch into a MergeAll-compatible map keyed by the
// stored field names.
func patchData(p domain.TripPatch) map[string]any {
	full := toTripDoc(p.Apply(domain.Trip{}))
	data := make(map[string]any)
	for _, f := range p.Fields() {
		switch f {
		case domain.FieldTitle:
			data[f.Key()] = full.Title
		case domain.FieldMembers:
			data[f.Key()] = full.Members
		case domain.FieldDate:
			data[f.Key()] = full.Date
		case domain.FieldImage:
			data[f.Key()] = full.Image
		case domain.FieldDuration:
			data[f.Key()] = full.Duration
		case domain.FieldSchedule:
			data[f.Key()] = full.Schedule
		case domain.FieldCheckList:
			data[f.Key()] = full.CheckList
		case domain.FieldCheckListTabs:
			data[f.Key()] = full.CheckListTabs
		case domain.FieldExpenses:
			data[f.Key()] = full.Expenses
		case domain.FieldScraps:
			data[f.Key()] = full.Scraps
		}
	}
	return data
}
