package store

import (
	"fmt"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/events"
	"github.com/pkordes/tabinico/internal/receipt"
	"github.com/pkordes/tabinico/internal/settlement"
)

// AddExpense records e as the newest expense. ID and Settled are assigned
// here; a zero Date means now.
func (s *Store) AddExpense(e domain.Expense) (domain.Expense, error) {
	if e.Amount <= 0 {
		return domain.Expense{}, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if err := required("paidBy", e.PaidBy); err != nil {
		return domain.Expense{}, err
	}
	if e.Category == "" {
		e.Category = domain.DefaultCategory
	}
	if e.Date.IsZero() {
		e.Date = s.deps.Now()
	}
	e.ID = domain.NewID()
	e.Settled = false
	e.Items = append([]string(nil), e.Items...)

	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		return domain.TripPatch{}.WithExpenses(append([]domain.Expense{e}, t.Expenses...)), nil
	})
	return e, err
}

// AddScannedExpense records the result of a receipt scan, paid by the first
// member of the trip.
func (s *Store) AddScannedExpense(r receipt.Result, receiptURL string) (domain.Expense, error) {
	t, err := s.Current()
	if err != nil {
		return domain.Expense{}, err
	}
	return s.AddExpense(r.Expense(t.Members, receiptURL, s.deps.Now()))
}

// Expenses returns one page of expenses, newest first, and the total count.
func (s *Store) Expenses(p domain.PaginationParams) ([]domain.Expense, int, error) {
	t, err := s.Current()
	if err != nil {
		return nil, 0, err
	}
	page, total := domain.Paginate(t.Expenses, p)
	return page, total, nil
}

// Wallet computes balances over the unsettled expenses.
func (s *Store) Wallet() (settlement.Summary, error) {
	t, err := s.Current()
	if err != nil {
		return settlement.Summary{}, err
	}
	return settlement.Compute(t.Expenses, t.Members), nil
}

// SettleUp marks every unsettled expense as settled in one write and
// returns how many were marked. With nothing to settle it writes nothing.
func (s *Store) SettleUp() (int, error) {
	var (
		changed int
		total   int64
		tripID  string
	)
	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		tripID = t.ID
		for _, e := range settlement.Unsettled(t.Expenses) {
			total += e.Amount
		}
		var next []domain.Expense
		next, changed = settlement.MarkSettled(t.Expenses)
		if changed == 0 {
			return domain.TripPatch{}, nil
		}
		return domain.TripPatch{}.WithExpenses(next), nil
	})
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		s.publish(events.WalletSettled, tripID, map[string]any{"expenses": changed, "amount": total})
	}
	return changed, nil
}

// ExportRows flattens the expenses for CSV or JSON export.
func (s *Store) ExportRows() ([]domain.ExportRow, error) {
	t, err := s.Current()
	if err != nil {
		return nil, err
	}
	return domain.ExportRows(t), nil
}
