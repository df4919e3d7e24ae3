package settlement_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/settlement"
)

func expense(amount int64, paidBy string) domain.Expense {
	return domain.Expense{ID: domain.NewID(), Amount: amount, PaidBy: paidBy}
}

func TestCompute_TwoMembersOnePaidEverything(t *testing.T) {
	s := settlement.Compute([]domain.Expense{expense(10000, "B")}, []string{"A", "B"})

	assert.True(t, s.FairShare.Equal(decimal.NewFromInt(5000)))
	require.Len(t, s.Balances, 2)
	assert.Equal(t, "A", s.Balances[0].Member)
	assert.True(t, s.Balances[0].Balance.Equal(decimal.NewFromInt(-5000)))
	assert.True(t, s.Balances[1].Balance.Equal(decimal.NewFromInt(5000)))
	require.NotNil(t, s.Instruction)
	assert.Equal(t, settlement.Instruction{From: "A", To: "B", Amount: 5000}, *s.Instruction)
}

func TestCompute_ScenarioWithSeveralExpenses(t *testing.T) {
	expenses := []domain.Expense{
		expense(5000, "A"),
		expense(12000, "B"),
		expense(3200, "A"),
	}

	s := settlement.Compute(expenses, []string{"A", "B"})

	assert.Equal(t, map[string]int64{"A": 8200, "B": 12000}, settlement.PaidTotals(expenses, []string{"A", "B"}))
	assert.Equal(t, int64(20200), s.UnsettledTotal)
	assert.True(t, s.FairShare.Equal(decimal.NewFromInt(10100)))
	assert.Equal(t, int64(-1900), s.Balances[0].Rounded())
	assert.Equal(t, int64(1900), s.Balances[1].Rounded())
	require.NotNil(t, s.Instruction)
	assert.Equal(t, settlement.Instruction{From: "A", To: "B", Amount: 1900}, *s.Instruction)
}

func TestCompute_BalancesSumToZero(t *testing.T) {
	cases := []struct {
		name     string
		expenses []domain.Expense
		members  []string
	}{
		{"thirds", []domain.Expense{expense(100, "A")}, []string{"A", "B", "C"}},
		{"sevenths", []domain.Expense{expense(1000, "A"), expense(333, "D")}, []string{"A", "B", "C", "D", "E", "F", "G"}},
		{"nobody paid", nil, []string{"A", "B"}},
		{"outsider paid", []domain.Expense{expense(500, "Z"), expense(900, "B")}, []string{"A", "B", "C"}},
	}

	tol := decimal.New(1, -9)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := settlement.Compute(tc.expenses, tc.members)

			sum := decimal.Zero
			for _, b := range s.Balances {
				sum = sum.Add(b.Balance)
			}
			assert.True(t, sum.Abs().LessThan(tol), "sum of balances = %s", sum)
		})
	}
}

func TestCompute_MembersWhoNeverPaidGetZero(t *testing.T) {
	totals := settlement.PaidTotals([]domain.Expense{expense(300, "A")}, []string{"A", "B", "C"})

	assert.Equal(t, int64(0), totals["B"])
	assert.Contains(t, totals, "C")
}

func TestCompute_SettledExpensesAreExcluded(t *testing.T) {
	settled := expense(9000, "A")
	settled.Settled = true

	s := settlement.Compute([]domain.Expense{settled, expense(2000, "B")}, []string{"A", "B"})

	assert.Equal(t, int64(2000), s.UnsettledTotal)
	assert.Equal(t, int64(9000), s.SettledTotal)
	require.NotNil(t, s.Instruction)
	assert.Equal(t, "A", s.Instruction.From)
	assert.Equal(t, int64(1000), s.Instruction.Amount)
}

func TestCompute_NoMembersDoesNotDivideByZero(t *testing.T) {
	s := settlement.Compute([]domain.Expense{expense(100, "A")}, nil)

	assert.True(t, s.FairShare.IsZero())
	assert.Empty(t, s.Balances)
	assert.Nil(t, s.Instruction)
}

func TestCompute_SubUnitImbalanceIsEven(t *testing.T) {
	// 1 / 2 = 0.5 each: both within tolerance, no transfer.
	s := settlement.Compute([]domain.Expense{expense(1, "A")}, []string{"A", "B"})

	assert.True(t, s.Even())
	assert.Nil(t, s.Instruction)
}

func TestCompute_ThreeMembersReportBalancesOnly(t *testing.T) {
	s := settlement.Compute([]domain.Expense{expense(900, "C")}, []string{"A", "B", "C"})

	assert.Nil(t, s.Instruction)
	require.Len(t, s.Balances, 3)
	assert.Equal(t, "A", s.Balances[0].Member, "ties keep member order")
	assert.Equal(t, "B", s.Balances[1].Member)
	assert.Equal(t, "C", s.Balances[2].Member)
	assert.Equal(t, int64(600), s.Balances[2].Rounded())
}

func TestMarkSettled_PreservesTotalsAndIsIdempotent(t *testing.T) {
	expenses := []domain.Expense{expense(5000, "A"), expense(12000, "B"), expense(3200, "A")}
	before := settlement.Compute(expenses, []string{"A", "B"}).UnsettledTotal

	once, changed := settlement.MarkSettled(expenses)
	require.Equal(t, 3, changed)
	assert.Empty(t, settlement.Unsettled(once))
	assert.Len(t, once, 3, "settling never removes history")

	after := settlement.Compute(once, []string{"A", "B"})
	assert.Equal(t, before, after.SettledTotal)
	assert.Zero(t, after.UnsettledTotal)

	twice, changed := settlement.MarkSettled(once)
	assert.Zero(t, changed)
	assert.Equal(t, once, twice)

	// The input slice is left untouched.
	assert.False(t, expenses[0].Settled)
}
