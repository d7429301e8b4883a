// Package lockstore wraps Redis as the coordination store described in
// the reservation engine's concurrency model: a set of transient,
// owner-checked keys with TTLs. The store makes no durability claim;
// callers must tolerate a lock disappearing and treat the database as
// the source of truth on contention.
package lockstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript performs an owner-checked compare-and-delete: it only
// removes the key when its current value matches the caller's owner
// token, so a stale caller can never release a lock it no longer holds.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Store is a thin wrapper over a Redis client providing atomic
// acquire/release/batch-read primitives over arbitrary string keys.
type Store struct {
	rdb *redis.Client
}

// New returns a Store bound to the given Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Acquire attempts to set key=owner with the given TTL if and only if
// the key is absent. It returns true iff the caller now owns the key.
func (s *Store) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Release deletes key only if its current value equals owner. It is a
// no-op (not an error) when the key is absent or owned by someone else
// — a stale caller must never release a lock that a different owner
// has since acquired.
func (s *Store) Release(ctx context.Context, key, owner string) error {
	_, err := releaseScript.Run(ctx, s.rdb, []string{key}, owner).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	return nil
}

// ReleaseAll unconditionally deletes every key in keys. Used for
// rollback once the caller has already verified ownership of each key
// individually (the Reserve action's lock rollback); the reaper uses
// the owner-checked Release instead.
func (s *Store) ReleaseAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// GetMany returns the current value for each key in keys, preserving
// index order. A missing key yields an empty string at that index.
func (s *Store) GetMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// AcquireMany attempts to acquire every key in order, stopping at the
// first failure. It returns the list of keys actually acquired (so the
// caller can roll them back) and the index of the key that failed, or
// -1 if all succeeded. Callers are responsible for sorting keys
// deterministically before calling AcquireMany so that concurrent
// multi-key acquisitions never deadlock (see internal/engine.Reserve).
func (s *Store) AcquireMany(ctx context.Context, keys []string, owner string, ttl time.Duration) (acquired []string, failedAt int, err error) {
	acquired = make([]string, 0, len(keys))
	for i, key := range keys {
		ok, acqErr := s.Acquire(ctx, key, owner, ttl)
		if acqErr != nil {
			return acquired, i, acqErr
		}
		if !ok {
			return acquired, i, nil
		}
		acquired = append(acquired, key)
	}
	return acquired, -1, nil
}

// SeatLockKey builds the coordination-store key for a seat lock.
func SeatLockKey(seatID string) string {
	return "lock:seat:" + seatID
}

// ReaperLockKey is the single coordination-store key contended for
// leader election by the expiration reaper across replicas.
const ReaperLockKey = "lock:cron:reservations-cleanup"
