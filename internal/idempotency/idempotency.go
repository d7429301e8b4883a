// Package idempotency implements a two-phase idempotency cache: a
// Redis-backed marker keyed by (userId, idempotencyKey) that starts as
// a "processing" sentinel and is replaced by the final response once
// the caller's work completes.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// MaxKeyLen is the longest idempotency key this store will accept;
// longer client-supplied keys are truncated.
const MaxKeyLen = 128

// PollInterval and PollAttempts bound how long a caller waits on a
// concurrent in-flight request before giving up (1.5s total).
const (
	PollInterval = 100 * time.Millisecond
	PollAttempts = 15
)

// ErrInProgress is returned by Wait when the polling budget is
// exhausted and the claim is still marked processing.
var ErrInProgress = errors.New("idempotency: request in progress, retry")

type marker struct {
	Status string          `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

const statusProcessing = "processing"

// Outcome is the result of a Claim call.
type Outcome int

const (
	// FirstWriter means the caller now owns the key and must perform
	// the work, then call Store or Abandon.
	FirstWriter Outcome = iota
	// Hit means a final response is already cached; Body holds it.
	Hit
	// Pending means another caller is still processing; the caller
	// should Wait.
	Pending
)

// ClaimResult carries the outcome of a Claim call and, when Outcome is
// Hit, the cached response body.
type ClaimResult struct {
	Outcome Outcome
	Body    json.RawMessage
}

// Store wraps a Redis client to provide the claim/wait/store/abandon
// protocol.
type Store struct {
	rdb *redis.Client
}

// New returns a Store bound to the given Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Key derives the cache key for a user and client-supplied idempotency
// key. An empty (after trim/truncate) clientKey yields an empty
// string, signalling "no idempotency requested" to the caller.
func Key(userID, clientKey string) string {
	k := strings.TrimSpace(clientKey)
	if k == "" {
		return ""
	}
	if len(k) > MaxKeyLen {
		k = k[:MaxKeyLen]
	}
	return "idem:reservation:" + userID + ":" + k
}

// Claim attempts to become the first writer for cacheKey. If the key
// is absent, it stores a processing marker and returns FirstWriter. If
// a final response is already cached, it returns Hit with that
// response. Otherwise another writer is mid-flight and it returns
// Pending.
func (s *Store) Claim(ctx context.Context, cacheKey string, ttl time.Duration) (ClaimResult, error) {
	m := marker{Status: statusProcessing}
	raw, err := json.Marshal(m)
	if err != nil {
		return ClaimResult{}, err
	}
	ok, err := s.rdb.SetNX(ctx, cacheKey, raw, ttl).Result()
	if err != nil {
		return ClaimResult{}, err
	}
	if ok {
		return ClaimResult{Outcome: FirstWriter}, nil
	}
	existing, err := s.get(ctx, cacheKey)
	if err != nil {
		return ClaimResult{}, err
	}
	if existing == nil || existing.Status == statusProcessing {
		return ClaimResult{Outcome: Pending}, nil
	}
	return ClaimResult{Outcome: Hit, Body: existing.Body}, nil
}

// Wait polls cacheKey up to PollAttempts times at PollInterval until a
// final response replaces the processing marker, or returns
// ErrInProgress once the budget is exhausted.
func (s *Store) Wait(ctx context.Context, cacheKey string) (json.RawMessage, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for i := 0; i < PollAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		existing, err := s.get(ctx, cacheKey)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Status != statusProcessing {
			return existing.Body, nil
		}
	}
	return nil, ErrInProgress
}

// Store replaces the processing marker at cacheKey with the final
// response body, with the given TTL.
func (s *Store) Store(ctx context.Context, cacheKey string, body any, ttl time.Duration) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}
	m := marker{Status: "done", Body: encoded}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cacheKey, raw, ttl).Err()
}

// Abandon deletes the processing marker so the next retry may attempt
// the work afresh. Called by the first writer when its work fails.
func (s *Store) Abandon(ctx context.Context, cacheKey string) error {
	return s.rdb.Del(ctx, cacheKey).Err()
}

func (s *Store) get(ctx context.Context, cacheKey string) (*marker, error) {
	raw, err := s.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var m marker
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
