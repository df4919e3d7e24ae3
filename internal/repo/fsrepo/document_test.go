package fsrepo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
)

func TestTripDoc_RoundTrip(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	budget := int64(3000)
	in := domain.NewTrip{Title: "Osaka", Members: []string{"A", "B"}, Date: &date, Duration: 2}.Build("OSA001")
	in.Schedule = []domain.ScheduleItem{{
		ID: "s1", Day: 1, Time: "09:00", Title: "Castle", Budget: &budget,
		Attachments: []domain.Attachment{{ID: "a1", Name: "ticket.pdf", URL: "u", Type: domain.AttachmentPDF}},
	}}
	in.CheckList = []domain.PackingItem{{ID: "p1", Item: "passport", AssignedTo: "A"}}
	in.Expenses = []domain.Expense{{ID: "e1", Amount: 500, PaidBy: "B", Date: date}}
	in.Scraps = []domain.ScrapItem{{ID: "c1", Title: "Dotonbori", WantToGo: true}}

	got := toTripDoc(in).toDomain("OSA001")

	assert.Equal(t, in, got)
}

func TestTripDoc_ToDomainNormalizes(t *testing.T) {
	got := tripDoc{}.toDomain("EMPTY1")

	assert.Equal(t, "EMPTY1", got.ID)
	assert.Equal(t, 1, got.Duration)
	assert.NotNil(t, got.Schedule)
	assert.NotNil(t, got.Expenses)
}

func TestPatchData_OnlyPatchedKeys(t *testing.T) {
	p := domain.TripPatch{}.
		WithTitle("Nagoya").
		WithDate(nil).
		WithCheckList([]domain.PackingItem{{ID: "p1", Item: "charger", AssignedTo: domain.AssignCommon}})

	data := patchData(p)

	require.Len(t, data, 3)
	assert.Equal(t, "Nagoya", data["title"])
	assert.Nil(t, data["date"].(*time.Time))
	assert.Equal(t, []packingDoc{{ID: "p1", Item: "charger", AssignedTo: "common"}}, data["checkList"])
}
