// Package fsrepo stores trip documents and profiles in Cloud Firestore.
// Trips live in the "trips" collection keyed by trip ID; profiles live in
// "users" keyed by user ID. Live updates come from document snapshot
// listeners.
package fsrepo

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/repo"
)

const (
	tripsCollection = "trips"
	usersCollection = "users"
)

type tripRepo struct {
	client *firestore.Client
	log    *slog.Logger
}

// NewTripRepo returns a Firestore-backed TripRepo. Listener failures are
// logged to log.
func NewTripRepo(client *firestore.Client, log *slog.Logger) repo.TripRepo {
	return &tripRepo{client: client, log: log}
}

func (r *tripRepo) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(tripsCollection).Doc(id)
}

func (r *tripRepo) Get(ctx context.Context, id string) (domain.Trip, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Trip{}, fmt.Errorf("fsrepo.TripRepo.Get: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("fsrepo.TripRepo.Get: %w", err)
	}
	return decode(snap)
}

func (r *tripRepo) Put(ctx context.Context, trip domain.Trip) error {
	if _, err := r.doc(trip.ID).Set(ctx, toTripDoc(trip.Normalize())); err != nil {
		return fmt.Errorf("fsrepo.TripRepo.Put: %w", err)
	}
	return nil
}

func (r *tripRepo) Merge(ctx context.Context, id string, patch domain.TripPatch) error {
	data := patchData(patch)
	data["id"] = id
	if _, err := r.doc(id).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("fsrepo.TripRepo.Merge: %w", err)
	}
	return nil
}

// Watch relays the document's snapshot listener. The first snapshot is the
// current state, as Firestore guarantees. The channel closes when the
// listener fails; callers resubscribe.
func (r *tripRepo) Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error) {
	out := make(chan domain.Snapshot, 1)
	go relay(ctx, r.log.With("trip_id", id), r.doc(id).Snapshots(ctx), toSnapshot, out)
	return out, nil
}

// snapshotIterator is the part of *firestore.DocumentSnapshotIterator
// that relay consumes.
type snapshotIterator interface {
	Next() (*firestore.DocumentSnapshot, error)
	Stop()
}

// relay forwards converted snapshots from it to out until the iterator
// fails or ctx ends. A snapshot that fails to convert is logged and skipped.
func relay(ctx context.Context, log *slog.Logger, it snapshotIterator,
	convert func(*firestore.DocumentSnapshot) (domain.Snapshot, error), out chan<- domain.Snapshot) {
	defer close(out)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			// An iterator that returned an error is finished either way.
			if ctx.Err() == nil && status.Code(err) != codes.Canceled {
				log.ErrorContext(ctx, "trip snapshot listener failed", "error", err)
			}
			return
		}

		s, err := convert(snap)
		if err != nil {
			log.ErrorContext(ctx, "trip snapshot decode failed", "error", err)
			continue
		}

		select {
		case out <- s:
		case <-ctx.Done():
			return
		}
	}
}

func toSnapshot(snap *firestore.DocumentSnapshot) (domain.Snapshot, error) {
	if !snap.Exists() {
		return domain.Snapshot{}, nil
	}
	t, err := decode(snap)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Trip: t, Exists: true}, nil
}

func decode(snap *firestore.DocumentSnapshot) (domain.Trip, error) {
	var d tripDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Trip{}, fmt.Errorf("decode document: %w", err)
	}
	return d.toDomain(snap.Ref.ID), nil
}

type profileRepo struct {
	client *firestore.Client
}

// NewProfileRepo returns a Firestore-backed ProfileRepo.
func NewProfileRepo(client *firestore.Client) repo.ProfileRepo {
	return &profileRepo{client: client}
}

func (r *profileRepo) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(userID)
}

func (r *profileRepo) ActiveTripID(ctx context.Context, userID string) (string, error) {
	snap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", fmt.Errorf("fsrepo.ProfileRepo.ActiveTripID: %w", err)
	}

	var p profileDoc
	if err := snap.DataTo(&p); err != nil {
		return "", fmt.Errorf("fsrepo.ProfileRepo.ActiveTripID: %w", err)
	}
	return p.ActiveTripID, nil
}

func (r *profileRepo) SetActiveTripID(ctx context.Context, userID, tripID string) error {
	data := map[string]any{"activeTripId": tripID}
	if _, err := r.doc(userID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("fsrepo.ProfileRepo.SetActiveTripID: %w", err)
	}
	return nil
}

func (r *profileRepo) ClearActiveTripID(ctx context.Context, userID string) error {
	data := map[string]any{"activeTripId": firestore.Delete}
	if _, err := r.doc(userID).Set(ctx, data, firestore.MergeAll); err != nil {
		return fmt.Errorf("fsrepo.ProfileRepo.ClearActiveTripID: %w", err)
	}
	return nil
}
