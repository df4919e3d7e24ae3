// Package redisrepo stores trip documents and profiles in Redis.
//
// Keys:
//
//	{prefix}:trip:{id}           JSON document
//	{prefix}:trip_changed:{id}   pub/sub channel, message is the trip ID
//	{prefix}:profile:{user_id}   active trip ID
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/tabinico/internal/domain"
	"github.com/pkordes/tabinico/internal/repo"
)

// maxMergeRetries bounds optimistic-lock retries when two writers race on
// the same document.
const maxMergeRetries = 10

// Key joins parts under prefix with ':'.
func Key(prefix string, parts ...string) string {
	return prefix + ":" + strings.Join(parts, ":")
}

type tripRepo struct {
	client *redis.Client
	prefix string
	log    *slog.Logger
}

// NewTripRepo returns a TripRepo storing documents under prefix.
func NewTripRepo(client *redis.Client, prefix string, log *slog.Logger) repo.TripRepo {
	return &tripRepo{client: client, prefix: prefix, log: log}
}

func (r *tripRepo) docKey(id string) string     { return Key(r.prefix, "trip", id) }
func (r *tripRepo) channelKey(id string) string { return Key(r.prefix, "trip_changed", id) }

func (r *tripRepo) Get(ctx context.Context, id string) (domain.Trip, error) {
	raw, err := r.client.Get(ctx, r.docKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Trip{}, fmt.Errorf("redisrepo.TripRepo.Get: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("redisrepo.TripRepo.Get: %w", err)
	}
	return decode(id, raw)
}

func (r *tripRepo) Put(ctx context.Context, trip domain.Trip) error {
	raw, err := json.Marshal(trip.Normalize())
	if err != nil {
		return fmt.Errorf("redisrepo.TripRepo.Put: encode: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.docKey(trip.ID), raw, 0)
		pipe.Publish(ctx, r.channelKey(trip.ID), trip.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisrepo.TripRepo.Put: %w", err)
	}
	return nil
}

// Merge reads, patches, and writes the document inside WATCH/MULTI so a
// concurrent writer forces a retry instead of being overwritten.
func (r *tripRepo) Merge(ctx context.Context, id string, patch domain.TripPatch) error {
	key := r.docKey(id)

	txf := func(tx *redis.Tx) error {
		cur := domain.Trip{ID: id}
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decode(id, raw); err != nil {
				return err
			}
		}

		next, err := json.Marshal(patch.Apply(cur).Normalize())
		if err != nil {
			return fmt.Errorf("encode: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			pipe.Publish(ctx, r.channelKey(id), id)
			return nil
		})
		return err
	}

	for range maxMergeRetries {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("redisrepo.TripRepo.Merge: %w", err)
		}
		return nil
	}
	return fmt.Errorf("redisrepo.TripRepo.Merge: %w", redis.TxFailedErr)
}

// Watch subscribes before the first read so no change between the read and
// the subscription is lost.
func (r *tripRepo) Watch(ctx context.Context, id string) (<-chan domain.Snapshot, error) {
	sub := r.client.Subscribe(ctx, r.channelKey(id))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("redisrepo.TripRepo.Watch: subscribe: %w", err)
	}

	out := make(chan domain.Snapshot, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			snap, err := r.snapshot(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.ErrorContext(ctx, "trip snapshot read failed", "trip_id", id, "error", err)
			} else {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case _, ok := <-msgs:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *tripRepo) snapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	t, err := r.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Snapshot{}, nil
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Trip: t, Exists: true}, nil
}

func decode(id string, raw []byte) (domain.Trip, error) {
	var t domain.Trip
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Trip{}, fmt.Errorf("decode document: %w", err)
	}
	t.ID = id
	return t.Normalize(), nil
}

type profileRepo struct {
	client *redis.Client
	prefix string
}

// NewProfileRepo returns a ProfileRepo storing references under prefix.
func NewProfileRepo(client *redis.Client, prefix string) repo.ProfileRepo {
	return &profileRepo{client: client, prefix: prefix}
}

func (r *profileRepo) ActiveTripID(ctx context.Context, userID string) (string, error) {
	id, err := r.client.Get(ctx, Key(r.prefix, "profile", userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redisrepo.ProfileRepo.ActiveTripID: %w", err)
	}
	return id, nil
}

func (r *profileRepo) SetActiveTripID(ctx context.Context, userID, tripID string) error {
	if err := r.client.Set(ctx, Key(r.prefix, "profile", userID), tripID, 0).Err(); err != nil {
		return fmt.Errorf("redisrepo.ProfileRepo.SetActiveTripID: %w", err)
	}
	return nil
}

func (r *profileRepo) ClearActiveTripID(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, Key(r.prefix, "profile", userID)).Err(); err != nil {
		return fmt.Errorf("redisrepo.ProfileRepo.ClearActiveTripID: %w", err)
	}
	return nil
}
