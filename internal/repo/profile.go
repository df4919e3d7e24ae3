package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// pgProfileRepo is the Postgres implementation of ProfileRepo.
type pgProfileRepo struct {
	db db
}

// NewProfileRepo constructs a ProfileRepo backed by the provided db connection.
func NewProfileRepo(db db) ProfileRepo {
	return &pgProfileRepo{db: db}
}

// ActiveTripID returns "" for unknown users and for a NULL reference.
func (r *pgProfileRepo) ActiveTripID(ctx context.Context, userID string) (string, error) {
	const q = `SELECT active_trip_id FROM profiles WHERE user_id = @user_id`

	var tripID pgtype.Text
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).Scan(&tripID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("repo.ProfileRepo.ActiveTripID: %w", err)
	}
	if !tripID.Valid {
		return "", nil
	}
	return tripID.String, nil
}

// SetActiveTripID upserts the profile row.
func (r *pgProfileRepo) SetActiveTripID(ctx context.Context, userID, tripID string) error {
	const q = `
		INSERT INTO profiles (user_id, active_trip_id)
		VALUES (@user_id, @trip_id)
		ON CONFLICT (user_id) DO UPDATE
		SET active_trip_id = EXCLUDED.active_trip_id,
		    updated_at     = now()`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID, "trip_id": tripID}); err != nil {
		return fmt.Errorf("repo.ProfileRepo.SetActiveTripID: %w", err)
	}
	return nil
}

// ClearActiveTripID nulls the reference; unknown users are left alone.
func (r *pgProfileRepo) ClearActiveTripID(ctx context.Context, userID string) error {
	const q = `
		UPDATE profiles
		SET active_trip_id = NULL,
		    updated_at     = now()
		WHERE user_id = @user_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID}); err != nil {
		return fmt.Errorf("repo.ProfileRepo.ClearActiveTripID: %w", err)
	}
	return nil
}
