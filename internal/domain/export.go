package domain

// ExportRow is a single row in the wallet export.
// It is a flat view of one expense with the trip fields repeated on every
// row, so a spreadsheet can be built without joins.
type ExportRow struct {
	// Trip fields, repeated for every expense.
	TripID    string
	TripTitle string

	// Expense fields.
	ExpenseID string
	Date      string // "2006-01-02" formatted date
	ShopName  string
	Category  string
	PaidBy    string
	Amount    int64
	Settled   bool

	// Items purchased, in receipt order.
	// Callers that need a joined string (e.g. CSV) should join with "|".
	Items []string
}

// ExportRows flattens the trip's expenses into export rows, newest first as
// they are stored.
func ExportRows(t Trip) []ExportRow {
	rows := make([]ExportRow, 0, len(t.Expenses))
	for _, e := range t.Expenses {
		rows = append(rows, ExportRow{
			TripID:    t.ID,
			TripTitle: t.Title,
			ExpenseID: e.ID,
			Date:      e.Date.Format("2006-01-02"),
			ShopName:  e.ShopName,
			Category:  e.Category,
			PaidBy:    e.PaidBy,
			Amount:    e.Amount,
			Settled:   e.Settled,
			Items:     append([]string{}, e.Items...),
		})
	}
	return rows
}
