// Package realtime pushes trip snapshots to connected browsers over
// websockets.
package realtime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/olahol/melody"

	"github.com/pkordes/tabinico/internal/domain"
)

// MessageSnapshot is the type of every message the hub sends.
const MessageSnapshot = "trip.snapshot"

const (
	keyTripID  = "trip_id"
	keyInitial = "initial"
	keyRelease = "release"
)

// Message is the JSON frame written to clients.
type Message struct {
	Type   string      `json:"type"`
	TripID string      `json:"tripId"`
	Trip   domain.Trip `json:"trip"`
}

// Hub fans trip changes out to the websocket sessions watching that trip.
// Identical consecutive payloads for a trip are sent once, since every
// session bound to a trip reports the same remote snapshot. The last
// payload of a trip is forgotten when its final session disconnects.
type Hub struct {
	m   *melody.Melody
	log *slog.Logger

	mu       sync.Mutex
	last     map[string][]byte
	watchers map[string]int
}

// NewHub returns a Hub with keep-alive pings enabled.
func NewHub(log *slog.Logger) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4 << 10
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &Hub{m: m, log: log, last: make(map[string][]byte), watchers: make(map[string]int)}

	m.HandleConnect(func(s *melody.Session) {
		h.watch(s.MustGet(keyTripID).(string), 1)
		if initial, ok := s.Get(keyInitial); ok {
			if err := s.Write(initial.([]byte)); err != nil {
				log.Warn("write initial snapshot failed", "error", err)
			}
		}
	})
	m.HandleDisconnect(func(s *melody.Session) {
		if release, ok := s.Get(keyRelease); ok {
			release.(func())()
		}
		tripID := s.MustGet(keyTripID).(string)
		h.watch(tripID, -1)
		log.Debug("live session closed", "trip_id", tripID)
	})
	m.HandleError(func(s *melody.Session, err error) {
		tripID, _ := s.Get(keyTripID)
		log.Warn("live session error", "trip_id", tripID, "error", err)
	})

	return h
}

// Serve upgrades the request and blocks until the client goes away.
// initial is written as the first frame. release, when non-nil, runs once
// after the connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, initial domain.Trip, release func()) error {
	payload, err := encode(initial)
	if err != nil {
		return err
	}

	done := func() {}
	if release != nil {
		var once sync.Once
		done = func() { once.Do(release) }
	}
	keys := map[string]any{keyTripID: initial.ID, keyInitial: payload, keyRelease: done}

	if err := h.m.HandleRequestWithKeys(w, r, keys); err != nil {
		done()
		return fmt.Errorf("realtime.Hub.Serve: %w", err)
	}
	return nil
}

// Publish sends t to every session watching tripID. It has the shape of a
// store change callback.
func (h *Hub) Publish(tripID string, t domain.Trip) {
	payload, err := encode(t)
	if err != nil {
		h.log.Error("encode live snapshot failed", "trip_id", tripID, "error", err)
		return
	}

	h.mu.Lock()
	if bytes.Equal(h.last[tripID], payload) {
		h.mu.Unlock()
		return
	}
	if h.watchers[tripID] > 0 {
		h.last[tripID] = payload
	}
	h.mu.Unlock()

	err = h.m.BroadcastFilter(payload, func(s *melody.Session) bool {
		id, ok := s.Get(keyTripID)
		return ok && id == tripID
	})
	if err != nil {
		h.log.Warn("broadcast live snapshot failed", "trip_id", tripID, "error", err)
	}
}

// watch adjusts the session count of tripID by delta.
func (h *Hub) watch(tripID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.watchers[tripID] + delta
	if n > 0 {
		h.watchers[tripID] = n
		return
	}
	delete(h.watchers, tripID)
	delete(h.last, tripID)
}

// Sessions returns the number of open connections.
func (h *Hub) Sessions() int { return h.m.Len() }

// Close disconnects every session.
func (h *Hub) Close() error {
	if err := h.m.Close(); err != nil {
		return fmt.Errorf("realtime.Hub.Close: %w", err)
	}
	return nil
}

func encode(t domain.Trip) ([]byte, error) {
	b, err := json.Marshal(Message{Type: MessageSnapshot, TripID: t.ID, Trip: t})
	if err != nil {
		return nil, fmt.Errorf("realtime.encode: %w", err)
	}
	return b, nil
}
