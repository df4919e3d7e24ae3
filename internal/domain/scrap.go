package domain

import "time"

// ScrapItem is a bookmark card on the scrap board.
type ScrapItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	AddedBy     string    `json:"addedBy"`
	AddedAt     time.Time `json:"addedAt"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SiteName    string    `json:"siteName,omitempty"`
	WantToGo    bool      `json:"wantToGo"`
}
