// Package settlement computes wallet balances from a trip's expenses.
// Everything here is pure: no I/O, no clocks, deterministic for a given input.
package settlement

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pkordes/tabinico/internal/domain"
)

// tolerance is the balance magnitude below which a member counts as even.
var tolerance = decimal.NewFromInt(1)

// Balance is one member's position against an even split.
// A negative Balance means the member owes money, positive means they are owed.
type Balance struct {
	Member  string
	Paid    int64
	Balance decimal.Decimal
}

// Even reports whether the member is within one currency unit of their fair share.
func (b Balance) Even() bool {
	return b.Balance.Abs().LessThan(tolerance)
}

// Rounded returns the balance rounded to the nearest whole currency unit.
func (b Balance) Rounded() int64 {
	return b.Balance.Round(0).IntPart()
}

// Instruction tells one member to pay another.
type Instruction struct {
	From   string
	To     string
	Amount int64
}

// Summary is the wallet view for a trip.
type Summary struct {
	// UnsettledTotal is the sum of members' unsettled payments.
	UnsettledTotal int64
	// SettledTotal is the sum of every expense already marked settled.
	SettledTotal int64
	// FairShare is UnsettledTotal divided evenly by the member count.
	FairShare decimal.Decimal
	// Balances is ordered from the largest debtor to the largest creditor.
	Balances []Balance
	// Instruction is set only for two-member trips whose balances are not
	// already even. Larger groups settle manually from Balances.
	Instruction *Instruction
}

// Even reports whether no transfer is needed.
func (s Summary) Even() bool {
	for _, b := range s.Balances {
		if !b.Even() {
			return false
		}
	}
	return true
}

// Unsettled returns the expenses that still take part in balance math.
func Unsettled(expenses []domain.Expense) []domain.Expense {
	out := []domain.Expense{}
	for _, e := range expenses {
		if !e.Settled {
			out = append(out, e)
		}
	}
	return out
}

// PaidTotals sums unsettled payments per member. Every member has an entry,
// zero when they never paid. Payments by names outside members are ignored.
func PaidTotals(expenses []domain.Expense, members []string) map[string]int64 {
	totals := make(map[string]int64, len(members))
	for _, m := range members {
		totals[m] = 0
	}
	for _, e := range expenses {
		if e.Settled {
			continue
		}
		if _, ok := totals[e.PaidBy]; ok {
			totals[e.PaidBy] += e.Amount
		}
	}
	return totals
}

// Compute builds the wallet summary. Members are not required to be unique;
// a repeated name gets one paid total but counts twice towards the split.
func Compute(expenses []domain.Expense, members []string) Summary {
	totals := PaidTotals(expenses, members)

	var s Summary
	for _, paid := range totals {
		s.UnsettledTotal += paid
	}
	for _, e := range expenses {
		if e.Settled {
			s.SettledTotal += e.Amount
		}
	}

	s.FairShare = decimal.Zero
	if len(members) > 0 {
		s.FairShare = decimal.NewFromInt(s.UnsettledTotal).Div(decimal.NewFromInt(int64(len(members))))
	}

	s.Balances = make([]Balance, 0, len(members))
	for _, m := range members {
		paid := totals[m]
		s.Balances = append(s.Balances, Balance{
			Member:  m,
			Paid:    paid,
			Balance: decimal.NewFromInt(paid).Sub(s.FairShare),
		})
	}
	sort.SliceStable(s.Balances, func(i, j int) bool {
		return s.Balances[i].Balance.LessThan(s.Balances[j].Balance)
	})

	if len(s.Balances) == 2 {
		debtor, creditor := s.Balances[0], s.Balances[1]
		if !debtor.Even() {
			s.Instruction = &Instruction{
				From:   debtor.Member,
				To:     creditor.Member,
				Amount: debtor.Balance.Abs().Round(0).IntPart(),
			}
		}
	}
	return s
}

// MarkSettled returns a copy of expenses with every unsettled record flagged
// settled, and how many records changed. Nothing is removed; calling it on an
// already-settled list changes nothing.
func MarkSettled(expenses []domain.Expense) ([]domain.Expense, int) {
	out := make([]domain.Expense, len(expenses))
	changed := 0
	for i, e := range expenses {
		if !e.Settled {
			e.Settled = true
			changed++
		}
		out[i] = e
	}
	return out, changed
}
