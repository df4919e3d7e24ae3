package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
)

func TestTripPatch_ZeroValueChangesNothing(t *testing.T) {
	trip := domain.EmptyTrip("ABC123")
	trip.Title = "Sapporo"

	var p domain.TripPatch

	assert.True(t, p.Empty())
	assert.Equal(t, trip, p.Apply(trip))
	assert.Empty(t, p.Values())
}

func TestTripPatch_ApplyOnlyTouchesPatchedFields(t *testing.T) {
	trip := domain.EmptyTrip("ABC123")
	trip.Title = "Sapporo"
	trip.Members = []string{"A", "B"}

	p := domain.TripPatch{}.WithTitle("Okinawa").WithDuration(4)
	got := p.Apply(trip)

	assert.Equal(t, "Okinawa", got.Title)
	assert.Equal(t, 4, got.Duration)
	assert.Equal(t, []string{"A", "B"}, got.Members, "unpatched field must persist")
	assert.Equal(t, []domain.Field{domain.FieldTitle, domain.FieldDuration}, p.Fields())
}

func TestTripPatch_ValuesUseDocumentKeys(t *testing.T) {
	p := domain.TripPatch{}.WithDate(nil).WithExpenses(nil)

	vals := p.Values()

	require.Len(t, vals, 2)
	assert.Contains(t, vals, "date")
	assert.Contains(t, vals, "expenses")

	// Cleared date must encode as null and an empty list as [].
	b, err := json.Marshal(vals)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":null,"expenses":[]}`, string(b))
}

func TestFullPatch_RoundTripsTrip(t *testing.T) {
	d := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	trip := domain.NewTrip{Title: "Winter", Members: []string{"A"}, Date: &d, Duration: 3}.Build("X1")

	got := domain.FullPatch(trip).Apply(domain.EmptyTrip("X1"))

	assert.Equal(t, trip, got)
}

func TestNewTrip_BuildClampsDuration(t *testing.T) {
	trip := domain.NewTrip{Title: "T", Duration: 0}.Build("ID")

	assert.Equal(t, 1, trip.Duration)
	assert.NotNil(t, trip.Schedule)
	assert.NotNil(t, trip.Expenses)
}

func TestTrip_CloneDoesNotShareBackingArrays(t *testing.T) {
	trip := domain.EmptyTrip("ID")
	trip.Members = []string{"A", "B"}
	trip.Expenses = []domain.Expense{{ID: "e1", Amount: 100, Items: []string{"tea"}}}

	c := trip.Clone()
	c.Members[0] = "Z"
	c.Expenses[0].Items[0] = "coffee"

	assert.Equal(t, "A", trip.Members[0])
	assert.Equal(t, "tea", trip.Expenses[0].Items[0])
}
