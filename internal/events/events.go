// Package events publishes trip lifecycle notifications for other services
// (mailers, analytics). Publishing is best effort: callers log failures and
// carry on.
package events

import (
	"context"
	"log/slog"
	"time"
)

// Event types.
const (
	TripCreated   = "trip.created"
	TripJoined    = "trip.joined"
	TripReset     = "trip.reset"
	WalletSettled = "wallet.settled"
)

// Event is the JSON message body. Type doubles as the routing key.
type Event struct {
	Type   string         `json:"type"`
	TripID string         `json:"tripId"`
	UserID string         `json:"userId,omitempty"` // empty for the anonymous demo session
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data,omitempty"`
}

// Publisher sends events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the structured log. It is used when no
// broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	p.Log.InfoContext(ctx, "event",
		"type", e.Type,
		"trip_id", e.TripID,
		"user_id", e.UserID,
		"data", e.Data,
	)
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
