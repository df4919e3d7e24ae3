package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/tabinico/internal/events"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := events.LogPublisher{Log: slog.New(slog.NewJSONHandler(&buf, nil))}

	err := p.Publish(context.Background(), events.Event{Type: events.TripCreated, TripID: "ABC123"})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trip.created", line["type"])
	assert.Equal(t, "ABC123", line["trip_id"])
}

func TestEvent_JSON(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	b, err := json.Marshal(events.Event{Type: events.WalletSettled, TripID: "T1", At: at, Data: map[string]any{"count": 2}})
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"wallet.settled","tripId":"T1","at":"2025-01-02T03:04:05Z","data":{"count":2}}`, string(b))
}

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("TEST_AMQP_URL")
	if url == "" {
		t.Skip("TEST_AMQP_URL not set; skipping integration test")
	}

	p, err := events.DialAMQP(url, "tabinico.test", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, p.Publish(ctx, events.Event{Type: events.TripReset, TripID: "T1", At: time.Now()}))
}
