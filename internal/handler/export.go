package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/store"
)

// Export formats accepted by ?format=.
const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "trip_title", "expense_id", "date", "shop_name",
	"category", "paid_by", "amount", "settled", "items",
}

// ExportRow is one expense in the JSON export.
type ExportRow struct {
	TripID    string   `json:"tripId"`
	TripTitle string   `json:"tripTitle"`
	ExpenseID string   `json:"expenseId"`
	Date      string   `json:"date"`
	ShopName  string   `json:"shopName,omitempty"`
	Category  string   `json:"category"`
	PaidBy    string   `json:"paidBy"`
	Amount    int64    `json:"amount"`
	Settled   bool     `json:"settled"`
	Items     []string `json:"items"`
}

// ExportExpenses handles GET /trip/expenses/export.
// It returns every expense of the trip, newest first, as a flat table.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) ExportExpenses(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var format *string
	if err := queryParam(r, "format", false, &format); err != nil {
		s.writeError(w, r, err)
		return
	}
	if format != nil && *format != formatJSON && *format != formatCSV {
		s.writeError(w, r, fmt.Errorf("%w: format must be one of json csv", domain.ErrValidation))
		return
	}

	rows, err := st.ExportRows()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == formatCSV {
		writeCSV(w, st.TripID(), rows)
		return
	}
	writeJSON(w, http.StatusOK, buildJSONRows(rows))
}

// buildJSONRows converts domain rows to their JSON form.
func buildJSONRows(rows []domain.ExportRow) []ExportRow {
	out := make([]ExportRow, 0, len(rows))
	for _, r := range rows {
		items := r.Items
		if items == nil {
			items = []string{}
		}
		out = append(out, ExportRow{
			TripID:    r.TripID,
			TripTitle: r.TripTitle,
			ExpenseID: r.ExpenseID,
			Date:      r.Date,
			ShopName:  r.ShopName,
			Category:  r.Category,
			PaidBy:    r.PaidBy,
			Amount:    r.Amount,
			Settled:   r.Settled,
			Items:     items,
		})
	}
	return out
}

// writeCSV encodes rows as a CSV download.
// Items within a row are pipe-separated ("|") to keep each expense on a single CSV line.
func writeCSV(w http.ResponseWriter, tripID string, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	// Writes into a bytes.Buffer cannot fail.
	_ = cw.Write(csvHeaders)
	for _, r := range rows {
		_ = cw.Write(rowToCSVRecord(r))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tabinico-%s-expenses.csv"`, tripID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// rowToCSVRecord encodes a domain.ExportRow as a flat string slice.
func rowToCSVRecord(r domain.ExportRow) []string {
	return []string{
		r.TripID,
		r.TripTitle,
		r.ExpenseID,
		r.Date,
		r.ShopName,
		r.Category,
		r.PaidBy,
		strconv.FormatInt(r.Amount, 10),
		strconv.FormatBool(r.Settled),
		strings.Join(r.Items, "|"),
	}
}
