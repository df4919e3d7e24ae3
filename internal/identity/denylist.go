package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDenylist stores revoked token IDs as keys that expire with the token.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist returns a denylist writing keys under prefix.
func NewRedisDenylist(client *redis.Client, prefix string) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: prefix}
}

func (d *RedisDenylist) key(tokenID string) string {
	return d.prefix + ":revoked:" + tokenID
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("identity.RedisDenylist.Revoke: %w", err)
	}
	return nil
}

func (d *RedisDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("identity.RedisDenylist.Revoked: %w", err)
	}
	return n > 0, nil
}

// MemoryDenylist keeps revocations in process. Entries are pruned lazily.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist returns an empty MemoryDenylist. now may be nil.
func NewMemoryDenylist(now func() time.Time) *MemoryDenylist {
	if now == nil {
		now = time.Now
	}
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	d.revoked[tokenID] = until
	return nil
}

func (d *MemoryDenylist) Revoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[tokenID]
	return ok && exp.After(d.now()), nil
}
