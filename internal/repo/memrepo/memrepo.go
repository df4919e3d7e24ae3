// Package memrepo keeps trip documents and profiles in process memory.
// It backs STORE_DRIVER=memory for local development and the store tests;
// nothing survives a restart.
package memrepo

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/repo"
)

// Store holds both repositories' state behind one lock.
type Store struct {
	mu       sync.Mutex
	trips    map[string]domain.Trip
	profiles map[string]string
	watchers map[string]map[chan struct{}]struct{}
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		trips:    make(map[string]domain.Trip),
		profiles: make(map[string]string),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

// Trips returns the TripRepo view of s.
func (s *Store) Trips() repo.TripRepo { return (*tripRepo)(s) }

// Profiles returns the ProfileRepo view of s.
func (s *Store) Profiles() repo.ProfileRepo { return (*profileRepo)(s) }

type tripRepo Store

var _ repo.TripRepo = (*tripRepo)(nil)

func (r *tripRepo) Get(_ context.Context, id string) (domain.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("memrepo.TripRepo.Get: %w", domain.ErrNotFound)
	}
	return t.Clone(), nil
}

func (r *tripRepo) Put(_ context.Context, trip domain.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trips[trip.ID] = trip.Clone()
	r.signalLocked(trip.ID)
	return nil
}

func (r *tripRepo) Merge(_ context.Context, id string, patch domain.TripPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.trips[id]
	if !ok {
		cur = domain.Trip{ID: id}
	}
	r.trips[id] = patch.Apply(cur).Clone()
	r.signalLocked(id)
	return nil
}

func (r *tripRepo) Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error) {
	sig := make(chan struct{}, 1)

	r.mu.Lock()
	set, ok := r.watchers[id]
	if !ok {
		set = make(map[chan struct{}]struct{})
		r.watchers[id] = set
	}
	set[sig] = struct{}{}
	r.mu.Unlock()

	out := make(chan domain.Snapshot, 1)
	go func() {
		defer close(out)
		defer func() {
			r.mu.Lock()
			delete(r.watchers[id], sig)
			if len(r.watchers[id]) == 0 {
				delete(r.watchers, id)
			}
			r.mu.Unlock()
		}()

		for {
			r.mu.Lock()
			t, exists := r.trips[id]
			snap := domain.Snapshot{Exists: exists}
			if exists {
				snap.Trip = t.Clone()
			}
			r.mu.Unlock()

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-sig:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Delete removes a document and notifies watchers. Deletion is not part of
// repo.TripRepo; it exists so tests can simulate a trip removed elsewhere.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.trips, id)
	(*tripRepo)(s).signalLocked(id)
}

func (r *tripRepo) signalLocked(id string) {
	for ch := range r.watchers[id] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type profileRepo Store

var _ repo.ProfileRepo = (*profileRepo)(nil)

func (r *profileRepo) ActiveTripID(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.profiles[userID], nil
}

func (r *profileRepo) SetActiveTripID(_ context.Context, userID, tripID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[userID] = tripID
	return nil
}

func (r *profileRepo) ClearActiveTripID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, userID)
	return nil
}
