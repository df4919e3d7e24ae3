package handler

import (
	"encoding/json"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/settlement"
	"github.com/pkordes/tabinico/internal/store"
)

// ExpenseRequest is the body of POST /trip/expenses. A missing date means today.
type ExpenseRequest struct {
	Amount     int64               `json:"amount" validate:"required,gt=0"`
	Category   string              `json:"category" validate:"max=50"`
	PaidBy     string              `json:"paidBy" validate:"required,max=50"`
	Items      []string            `json:"items" validate:"max=100,dive,max=100"`
	ShopName   string              `json:"shopName" validate:"max=100"`
	ReceiptURL string              `json:"receiptUrl" validate:"omitempty,url"`
	Date       *openapi_types.Date `json:"date"`
}

// Pagination describes one page of a list.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ExpenseListResponse is one page of expenses, newest first.
type ExpenseListResponse struct {
	Data       []domain.Expense `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// BalanceResponse is one member's position. Balance is negative for
// members who owe money.
type BalanceResponse struct {
	Member  string      `json:"member"`
	Paid    int64       `json:"paid"`
	Balance json.Number `json:"balance"`
	Rounded int64       `json:"rounded"`
	Even    bool        `json:"even"`
}

// InstructionResponse tells one member to pay another.
type InstructionResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// WalletResponse is the body of GET /trip/wallet. Instruction is only set
// for two-member trips that are not already even.
type WalletResponse struct {
	UnsettledTotal int64                `json:"unsettledTotal"`
	SettledTotal   int64                `json:"settledTotal"`
	FairShare      json.Number          `json:"fairShare"`
	Even           bool                 `json:"even"`
	Balances       []BalanceResponse    `json:"balances"`
	Instruction    *InstructionResponse `json:"instruction"`
}

// SettleResponse reports how many expenses were marked settled.
type SettleResponse struct {
	Settled int `json:"settled"`
}

// ListExpenses handles GET /trip/expenses.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListExpenses(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var page, limit *int
	if err := queryParam(r, "page", false, &page); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := queryParam(r, "limit", false, &limit); err != nil {
		s.writeError(w, r, err)
		return
	}

	params := domain.NewPaginationParams(page, limit)
	data, total, err := st.Expenses(params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExpenseListResponse{
		Data:       data,
		Pagination: Pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// AddExpense handles POST /trip/expenses.
func (s *Server) AddExpense(w http.ResponseWriter, r *http.Request, st *store.Store) {
	var body ExpenseRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	e := domain.Expense{
		Amount:     body.Amount,
		Category:   body.Category,
		PaidBy:     body.PaidBy,
		Items:      body.Items,
		ShopName:   body.ShopName,
		ReceiptURL: body.ReceiptURL,
	}
	if body.Date != nil {
		e.Date = body.Date.Time
	}

	created, err := st.AddExpense(e)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ScanReceipt handles POST /trip/expenses/scan: the multipart "file" photo
// is stored, read by the receipt scanner and recorded as an expense paid by
// the first member.
func (s *Server) ScanReceipt(w http.ResponseWriter, r *http.Request, st *store.Store) {
	if _, err := st.Current(); err != nil {
		s.writeError(w, r, err)
		return
	}

	att, err := s.uploadFormFile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.scanner.Scan(r.Context(), att.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	e, err := st.AddScannedExpense(res, att.URL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// GetWallet handles GET /trip/wallet.
func (s *Server) GetWallet(w http.ResponseWriter, r *http.Request, st *store.Store) {
	sum, err := st.Wallet()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}

// SettleUp handles POST /trip/wallet/settle. Settling twice is harmless.
func (s *Server) SettleUp(w http.ResponseWriter, r *http.Request, st *store.Store) {
	n, err := st.SettleUp()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SettleResponse{Settled: n})
}

func summaryToResponse(sum settlement.Summary) WalletResponse {
	resp := WalletResponse{
		UnsettledTotal: sum.UnsettledTotal,
		SettledTotal:   sum.SettledTotal,
		FairShare:      json.Number(sum.FairShare.StringFixed(2)),
		Even:           sum.Even(),
		Balances:       make([]BalanceResponse, 0, len(sum.Balances)),
	}
	for _, b := range sum.Balances {
		resp.Balances = append(resp.Balances, BalanceResponse{
			Member:  b.Member,
			Paid:    b.Paid,
			Balance: json.Number(b.Balance.StringFixed(2)),
			Rounded: b.Rounded(),
			Even:    b.Even(),
		})
	}
	if in := sum.Instruction; in != nil {
		resp.Instruction = &InstructionResponse{From: in.From, To: in.To, Amount: in.Amount}
	}
	return resp
}
