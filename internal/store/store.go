// Package store holds the live trip state for one caller session.
//
// A Store mirrors a single remote trip document: it subscribes to the
// document's change stream, answers reads from local state, and applies
// mutations optimistically before persisting them in the background.
// Remote snapshots always overwrite local state once they arrive.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/events"
	"github.com/pkordes/tabinico/internal/repo"
)

// ChangeFunc is called with the trip state after every local or remote change.
type ChangeFunc func(tripID string, trip domain.Trip)

// Deps are the collaborators shared by every Store a Manager creates.
type Deps struct {
	Trips    repo.TripRepo
	Profiles repo.ProfileRepo
	Events   events.Publisher
	Log      *slog.Logger
	OnChange ChangeFunc       // optional
	Now      func() time.Time // optional, defaults to time.Now
}

// Settings tune store behaviour.
type Settings struct {
	DemoTripID   string
	WriteTimeout time.Duration
	// ResubscribeDelay is the wait before reopening a change stream that
	// ended on its own. Defaults to defaultResubscribeDelay.
	ResubscribeDelay time.Duration
}

const defaultResubscribeDelay = 2 * time.Second

// ErrStreamClosed is returned by Bind when the trip's change stream ends
// before delivering a first snapshot.
var ErrStreamClosed = errors.New("change stream closed before first snapshot")

// Store is the trip state of one session. The zero value is not usable;
// stores are created by a Manager.
type Store struct {
	deps   Deps
	cfg    Settings
	userID string // "" for the anonymous demo session
	base   context.Context

	openOnce sync.Once
	openErr  error

	mu       sync.Mutex
	tripID   string
	trip     domain.Trip
	gen      uint64
	cancel   context.CancelFunc
	refs     int
	lastUsed time.Time

	writes writeQueue
}

func newStore(base context.Context, deps Deps, cfg Settings, userID string) *Store {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = defaultResubscribeDelay
	}
	return &Store{
		deps:     deps,
		cfg:      cfg,
		userID:   userID,
		base:     base,
		lastUsed: deps.Now(),
	}
}

// Anonymous reports whether the store belongs to the shared demo session.
func (s *Store) Anonymous() bool { return s.userID == "" }

// UserID returns the owning user, or "" for the demo session.
func (s *Store) UserID() string { return s.userID }

// open binds the store to whatever trip the session should see first.
func (s *Store) open(ctx context.Context) error {
	s.openOnce.Do(func() {
		id, err := s.ResolveActiveTrip(ctx)
		if err != nil {
			s.openErr = err
			return
		}
		s.openErr = s.Bind(ctx, id)
	})
	return s.openErr
}

// ResolveActiveTrip returns the trip the session should be bound to:
// the demo trip for anonymous sessions, otherwise the user's stored
// reference. A user without a reference gets "" and no error.
func (s *Store) ResolveActiveTrip(ctx context.Context) (string, error) {
	if s.Anonymous() {
		return s.cfg.DemoTripID, nil
	}
	id, err := s.deps.Profiles.ActiveTripID(ctx, s.userID)
	if err != nil {
		return "", fmt.Errorf("store.Store.ResolveActiveTrip: %w", err)
	}
	return id, nil
}

// Bind switches the store to tripID and waits for the first snapshot, or
// for ctx to end. An empty tripID unbinds. Snapshots from any earlier
// binding are discarded from this point on. If no snapshot arrives the
// store is left unbound, so mutators never build patches from empty state.
func (s *Store) Bind(ctx context.Context, tripID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.tripID = tripID
	s.trip = domain.Trip{}
	if tripID == "" {
		s.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.mu.Unlock()

	snaps, err := s.deps.Trips.Watch(subCtx, tripID)
	if err != nil {
		cancel()
		return fmt.Errorf("store.Store.Bind: %w", err)
	}

	ready := make(chan bool, 1)
	go s.pump(gen, tripID, snaps, ready)

	select {
	case ok := <-ready:
		if !ok {
			s.unbind(gen)
			return fmt.Errorf("store.Store.Bind: trip %q: %w", tripID, ErrStreamClosed)
		}
		return nil
	case <-ctx.Done():
		s.unbind(gen)
		return fmt.Errorf("store.Store.Bind: waiting for first snapshot: %w", ctx.Err())
	}
}

// unbind drops the binding made under gen unless a newer one replaced it.
func (s *Store) unbind(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.tripID = ""
	s.trip = domain.Trip{}
}

// pump applies snapshots for one binding generation until the stream ends.
// ready, when non-nil, receives true after the first snapshot or false if
// the stream closed without one. A stream that ends after delivering
// snapshots is reopened.
func (s *Store) pump(gen uint64, tripID string, snaps <-chan domain.Snapshot, ready chan<- bool) {
	got := false
	for snap := range snaps {
		s.apply(gen, tripID, snap)
		if !got && ready != nil {
			ready <- true
		}
		got = true
	}
	if !got && ready != nil {
		ready <- false
		return
	}
	s.resubscribe(gen, tripID)
}

// resubscribe reopens the change stream of binding gen after it ended on
// its own. Local state is served as is until the new stream delivers.
// It gives up once the binding is replaced or the store is closed.
func (s *Store) resubscribe(gen uint64, tripID string) {
	if !s.current(gen) || s.base.Err() != nil {
		return
	}
	s.deps.Log.Error("trip subscription ended, resubscribing",
		"user_id", s.userID, "trip_id", tripID, "retry_in", s.cfg.ResubscribeDelay)

	for {
		select {
		case <-time.After(s.cfg.ResubscribeDelay):
		case <-s.base.Done():
			return
		}

		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		if s.cancel != nil {
			s.cancel()
		}
		subCtx, cancel := context.WithCancel(s.base)
		s.cancel = cancel
		s.mu.Unlock()

		snaps, err := s.deps.Trips.Watch(subCtx, tripID)
		if err != nil {
			s.deps.Log.Error("trip resubscribe failed",
				"user_id", s.userID, "trip_id", tripID, "error", err)
			continue
		}
		go s.pump(gen, tripID, snaps, nil)
		return
	}
}

func (s *Store) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

func (s *Store) apply(gen uint64, tripID string, snap domain.Snapshot) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}

	if !snap.Exists && !s.Anonymous() {
		// The document was deleted elsewhere: drop the stale reference and
		// fall back to having no active trip.
		s.gen++
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.tripID = ""
		s.trip = domain.Trip{}
		s.background(func(ctx context.Context) {
			if err := s.deps.Profiles.ClearActiveTripID(ctx, s.userID); err != nil {
				s.deps.Log.ErrorContext(ctx, "clear stale trip reference failed",
					"user_id", s.userID, "trip_id", tripID, "error", err)
			}
		})
		s.mu.Unlock()

		s.deps.Log.Warn("active trip no longer exists, clearing reference",
			"user_id", s.userID, "trip_id", tripID)
		return
	}

	if snap.Exists {
		s.trip = snap.Trip.Normalize()
	} else {
		s.trip = domain.EmptyTrip(tripID)
	}
	s.trip.ID = tripID
	t := s.trip.Clone()
	s.mu.Unlock()

	s.changed(tripID, t)
}

// Current returns a copy of the bound trip.
// Returns domain.ErrNoActiveTrip when the session has no trip.
func (s *Store) Current() (domain.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tripID == "" {
		return domain.Trip{}, domain.ErrNoActiveTrip
	}
	return s.trip.Clone(), nil
}

// TripID returns the bound trip ID, or "" when there is none.
func (s *Store) TripID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tripID
}

// CreateTrip writes a new trip document and binds the session to it.
// Anonymous sessions overwrite the demo document instead of creating one.
func (s *Store) CreateTrip(ctx context.Context, in domain.NewTrip) (string, error) {
	if err := validateNewTrip(in); err != nil {
		return "", err
	}

	id := domain.NewTripID()
	if s.Anonymous() {
		id = s.cfg.DemoTripID
	}

	if err := s.deps.Trips.Put(ctx, in.Build(id)); err != nil {
		return "", fmt.Errorf("store.Store.CreateTrip: %w", err)
	}
	if !s.Anonymous() {
		if err := s.deps.Profiles.SetActiveTripID(ctx, s.userID, id); err != nil {
			return "", fmt.Errorf("store.Store.CreateTrip: %w", err)
		}
	}
	if err := s.Bind(ctx, id); err != nil {
		return "", err
	}

	s.publish(events.TripCreated, id, map[string]any{"title": in.Title, "members": len(in.Members)})
	return id, nil
}

// JoinTrip binds the user to an existing trip. The reference is only
// rewritten after the document is confirmed to exist.
func (s *Store) JoinTrip(ctx context.Context, tripID string) error {
	if s.Anonymous() {
		return domain.ErrUnauthenticated
	}

	if _, err := s.deps.Trips.Get(ctx, tripID); err != nil {
		return fmt.Errorf("store.Store.JoinTrip: %w", err)
	}
	if err := s.deps.Profiles.SetActiveTripID(ctx, s.userID, tripID); err != nil {
		return fmt.Errorf("store.Store.JoinTrip: %w", err)
	}
	if err := s.Bind(ctx, tripID); err != nil {
		return err
	}

	s.publish(events.TripJoined, tripID, nil)
	return nil
}

// ResetTrip clears a user's active trip reference, or wipes the demo
// document for the anonymous session. The demo document itself stays.
func (s *Store) ResetTrip(ctx context.Context) error {
	tripID := s.TripID()

	if s.Anonymous() {
		if err := s.deps.Trips.Put(ctx, domain.EmptyTrip(s.cfg.DemoTripID)); err != nil {
			return fmt.Errorf("store.Store.ResetTrip: %w", err)
		}
		s.mu.Lock()
		if s.tripID == s.cfg.DemoTripID {
			s.trip = domain.EmptyTrip(s.cfg.DemoTripID)
		}
		t := s.trip.Clone()
		s.mu.Unlock()
		s.changed(s.cfg.DemoTripID, t)
	} else {
		if err := s.deps.Profiles.ClearActiveTripID(ctx, s.userID); err != nil {
			return fmt.Errorf("store.Store.ResetTrip: %w", err)
		}
		if err := s.Bind(ctx, ""); err != nil {
			return err
		}
	}

	if tripID != "" {
		s.publish(events.TripReset, tripID, nil)
	}
	return nil
}

// UpdateTrip applies a partial update to the bound trip.
func (s *Store) UpdateTrip(patch domain.TripPatch) error {
	if err := validatePatch(patch); err != nil {
		return err
	}
	return s.mutate(func(domain.Trip) (domain.TripPatch, error) { return patch, nil })
}

// mutate derives a patch from the current local state and hands it to
// mergeUpdateFireAndForget. fn runs under the store lock and must not keep
// references to t's slices in the patch without copying them.
func (s *Store) mutate(fn func(t domain.Trip) (domain.TripPatch, error)) error {
	s.mu.Lock()
	if s.tripID == "" {
		s.mu.Unlock()
		return domain.ErrNoActiveTrip
	}
	patch, err := fn(s.trip)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if patch.Empty() {
		s.mu.Unlock()
		return nil
	}
	tripID, t := s.mergeUpdateFireAndForget(patch)
	s.mu.Unlock()

	s.changed(tripID, t)
	return nil
}

// mergeUpdateFireAndForget applies patch to local state and queues the
// remote merge without waiting for it. A failed merge is logged and local
// state is left as is. Callers hold s.mu, which keeps queue order equal to
// local apply order.
func (s *Store) mergeUpdateFireAndForget(patch domain.TripPatch) (string, domain.Trip) {
	tripID := s.tripID
	s.trip = patch.Apply(s.trip)
	t := s.trip.Clone()

	s.background(func(ctx context.Context) {
		if err := s.deps.Trips.Merge(ctx, tripID, patch); err != nil {
			s.deps.Log.ErrorContext(ctx, "remote trip write failed",
				"trip_id", tripID, "fields", len(patch.Fields()), "error", err)
		}
	})
	return tripID, t
}

// background queues fn behind earlier writes of this session and runs it
// with the write timeout. Closing the session does not abort queued writes.
func (s *Store) background(fn func(ctx context.Context)) {
	s.writes.push(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.base), s.cfg.WriteTimeout)
		defer cancel()
		fn(ctx)
	})
}

// Flush blocks until every queued write has finished.
func (s *Store) Flush() {
	s.writes.wait()
}

func (s *Store) publish(typ, tripID string, data map[string]any) {
	e := events.Event{Type: typ, TripID: tripID, UserID: s.userID, At: s.deps.Now(), Data: data}
	s.background(func(ctx context.Context) {
		if err := s.deps.Events.Publish(ctx, e); err != nil {
			s.deps.Log.WarnContext(ctx, "event publish failed", "type", typ, "trip_id", tripID, "error", err)
		}
	})
}

func (s *Store) changed(tripID string, t domain.Trip) {
	if s.deps.OnChange != nil {
		s.deps.OnChange(tripID, t)
	}
}

// close ends the subscription and waits for pending writes.
func (s *Store) close() {
	s.mu.Lock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.writes.wait()
}

// Retain marks the store as in use so the Manager will not evict it.
// Every Retain must be paired with a Release.
func (s *Store) Retain() {
	s.mu.Lock()
	s.refs++
	s.mu.Unlock()
}

// Release undoes one Retain.
func (s *Store) Release() {
	s.mu.Lock()
	if s.refs > 0 {
		s.refs--
	}
	s.lastUsed = s.deps.Now()
	s.mu.Unlock()
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastUsed = s.deps.Now()
	s.mu.Unlock()
}

func (s *Store) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs == 0 && s.lastUsed.Before(cutoff)
}
