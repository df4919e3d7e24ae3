package domain

import "time"

// DefaultCategory is assigned to expenses created from a receipt scan.
const DefaultCategory = "未分類"

// Expense is one wallet transaction, in integer currency units.
// Once Settled is true the record is kept for history and excluded from
// balances; nothing ever flips it back.
type Expense struct {
	ID         string    `json:"id"`
	Amount     int64     `json:"amount"`
	Category   string    `json:"category"`
	PaidBy     string    `json:"paidBy"`
	Items      []string  `json:"items,omitempty"`
	ReceiptURL string    `json:"receiptUrl,omitempty"`
	Date       time.Time `json:"date"`
	ShopName   string    `json:"shopName"`
	Settled    bool      `json:"settled,omitempty"`
}
