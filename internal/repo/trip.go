// Package repo contains the persistence contracts for trip documents and user
// profiles, and their Postgres implementation. Other drivers live in
// subpackages (fsrepo, redisrepo, memrepo) and satisfy the same interfaces.
// No business logic lives here, only storage and document mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/tabinico/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for trip documents.
// The store depends on this interface, not on a concrete backend.
type TripRepo interface {
	// Get returns the current document.
	// Returns domain.ErrNotFound if no document with that ID exists.
	Get(ctx context.Context, id string) (domain.Trip, error)

	// Put writes the whole document, replacing anything stored under trip.ID.
	Put(ctx context.Context, trip domain.Trip) error

	// Merge writes only the patched top-level fields; untouched fields keep
	// their stored values. A missing document is created from the patch.
	Merge(ctx context.Context, id string, patch domain.TripPatch) error

	// Watch streams snapshots of the document, starting with its current state.
	// The channel is closed once ctx is cancelled.
	Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error)
}

// ProfileRepo stores the per-identity active trip reference.
type ProfileRepo interface {
	// ActiveTripID returns the stored reference, or "" when the user has no
	// profile or no active trip. A missing profile is not an error.
	ActiveTripID(ctx context.Context, userID string) (string, error)

	// SetActiveTripID binds the user to tripID, creating the profile if needed.
	SetActiveTripID(ctx context.Context, userID, tripID string) error

	// ClearActiveTripID removes the binding. Clearing an absent binding is a no-op.
	ClearActiveTripID(ctx context.Context, userID string) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
// Documents are stored as JSONB; merges use the jsonb || operator, which
// replaces top-level keys and leaves the others alone.
type pgTripRepo struct {
	db      db
	changes *Listener
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// changes feeds Watch; pass nil when live updates are not needed (tests).
func NewTripRepo(db db, changes *Listener) TripRepo {
	return &pgTripRepo{db: db, changes: changes}
}

// Get retrieves a document by ID.
func (r *pgTripRepo) Get(ctx context.Context, id string) (domain.Trip, error) {
	const q = `SELECT doc FROM trips WHERE id = @id`

	var raw []byte
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, fmt.Errorf("repo.TripRepo.Get: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Get: %w", err)
	}

	trip, err := decodeTrip(id, raw)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Get: %w", err)
	}
	return trip, nil
}

// Put upserts the whole document.
func (r *pgTripRepo) Put(ctx context.Context, trip domain.Trip) error {
	const q = `
		INSERT INTO trips (id, doc)
		VALUES (@id, @doc)
		ON CONFLICT (id) DO UPDATE
		SET doc        = EXCLUDED.doc,
		    updated_at = now()`

	doc, err := json.Marshal(trip.Normalize())
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Put: encode: %w", err)
	}

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": trip.ID, "doc": doc}); err != nil {
		return fmt.Errorf("repo.TripRepo.Put: %w", err)
	}
	return nil
}

// Merge upserts the patched keys into the stored document.
func (r *pgTripRepo) Merge(ctx context.Context, id string, patch domain.TripPatch) error {
	const q = `
		INSERT INTO trips (id, doc)
		VALUES (@id, jsonb_build_object('id', @id::text) || @patch::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET doc        = trips.doc || @patch::jsonb,
		    updated_at = now()`

	values, err := json.Marshal(patch.Values())
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Merge: encode: %w", err)
	}

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "patch": string(values)}); err != nil {
		return fmt.Errorf("repo.TripRepo.Merge: %w", err)
	}
	return nil
}

// Watch subscribes to trip_changed notifications for id and re-reads the
// document on each one.
func (r *pgTripRepo) Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error) {
	if r.changes == nil {
		return nil, errors.New("repo.TripRepo.Watch: no change listener configured")
	}

	notify, release := r.changes.Subscribe(id)
	out := make(chan domain.Snapshot, 1)

	go func() {
		defer close(out)
		defer release()

		for {
			snap, err := r.snapshot(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// A failed read is retried on the next notification.
				r.changes.log.ErrorContext(ctx, "trip snapshot read failed", "trip_id", id, "error", err)
			} else {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-notify:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (r *pgTripRepo) snapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	trip, err := r.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Trip: trip, Exists: true}, nil
}

// decodeTrip maps a stored JSON document into a domain.Trip.
// The row ID wins over whatever the document says.
func decodeTrip(id string, raw []byte) (domain.Trip, error) {
	var t domain.Trip
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Trip{}, fmt.Errorf("decode document: %w", err)
	}
	t.ID = id
	return t.Normalize(), nil
}
