// Package receipt turns a photographed receipt into expense fields.
// Only a mock scanner exists; there is no OCR behind it.
package receipt

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkordes/tabinico/internal/domain"
)

// UnknownPayer is used when a trip has no members to attribute a scan to.
const UnknownPayer = "Unknown"

// Result is what a scan extracts from a receipt image.
type Result struct {
	ShopName string
	Amount   int64
	Items    []string
}

// Scanner extracts expense fields from an uploaded receipt.
type Scanner interface {
	Scan(ctx context.Context, receiptURL string) (Result, error)
}

// MockScanner returns a convenience store receipt with a random total
// between 1000 and 5999.
type MockScanner struct {
	// Delay simulates processing time. Zero returns immediately.
	Delay time.Duration
}

func (s MockScanner) Scan(ctx context.Context, _ string) (Result, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return Result{
		ShopName: "Seven Eleven",
		Amount:   1000 + rand.Int64N(5000),
		Items:    []string{"おにぎり", "お茶", "唐揚げくん"},
	}, nil
}

// Expense builds the wallet entry for a scan. The first member is assumed
// to have paid and the category is left for the user to fill in.
func (r Result) Expense(members []string, receiptURL string, at time.Time) domain.Expense {
	paidBy := UnknownPayer
	if len(members) > 0 {
		paidBy = members[0]
	}
	return domain.Expense{
		ID:         domain.NewID(),
		Amount:     r.Amount,
		Category:   domain.DefaultCategory,
		PaidBy:     paidBy,
		Items:      append([]string{}, r.Items...),
		ReceiptURL: receiptURL,
		Date:       at,
		ShopName:   r.ShopName,
	}
}
