package receipt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/receipt"
)

func TestMockScanner_Scan(t *testing.T) {
	for range 50 {
		got, err := receipt.MockScanner{}.Scan(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, "Seven Eleven", got.ShopName)
		assert.GreaterOrEqual(t, got.Amount, int64(1000))
		assert.LessOrEqual(t, got.Amount, int64(5999))
		assert.Equal(t, []string{"おにぎり", "お茶", "唐揚げくん"}, got.Items)
	}
}

func TestMockScanner_CancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := receipt.MockScanner{Delay: time.Hour}.Scan(ctx, "")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestResult_Expense(t *testing.T) {
	at := time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)
	r := receipt.Result{ShopName: "Lawson", Amount: 1500, Items: []string{"water"}}

	t.Run("first member pays", func(t *testing.T) {
		e := r.Expense([]string{"Aki", "Ben"}, "https://x/r.jpg", at)
		assert.Equal(t, "Aki", e.PaidBy)
		assert.Equal(t, domain.DefaultCategory, e.Category)
		assert.Equal(t, int64(1500), e.Amount)
		assert.Equal(t, "https://x/r.jpg", e.ReceiptURL)
		assert.Equal(t, at, e.Date)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Settled)
	})

	t.Run("no members", func(t *testing.T) {
		e := r.Expense(nil, "", at)
		assert.Equal(t, receipt.UnknownPayer, e.PaidBy)
	})
}
