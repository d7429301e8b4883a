package engine

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/cinema-seats/reservation-engine/internal/eventbus"
	"github.com/cinema-seats/reservation-engine/internal/idempotency"
	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
)

// ReserveInput is the Reserve action's request shape.
type ReserveInput struct {
	UserID         string
	SeatIDs        []string
	IdempotencyKey string
}

// ReserveResponse is the Reserve action's response shape, cached
// byte-for-byte under the idempotency key when one is supplied.
type ReserveResponse struct {
	Message          string   `json:"message"`
	ReservationIDs   []string `json:"reservationIds"`
	ExpiresAt        string   `json:"expiresAt"`
	ExpiresInSeconds int      `json:"expiresInSeconds"`
}

// Reserve runs the idempotency gate, deterministic lock ordering,
// availability pre-check, lock acquisition, transactional persistence,
// event publish, and idempotent-response recording in sequence.
func (e *Engine) Reserve(ctx context.Context, in ReserveInput) (*ReserveResponse, error) {
	if len(in.SeatIDs) == 0 {
		return nil, badRequest("seatIds must be a non-empty list")
	}

	cacheKey := idempotency.Key(in.UserID, in.IdempotencyKey)
	if cacheKey != "" {
		claim, err := e.Idempotency.Claim(ctx, cacheKey, e.Cfg.IdempotencyTTL)
		if err != nil {
			return nil, internal("idempotency claim: %v", err)
		}
		switch claim.Outcome {
		case idempotency.Hit:
			var resp ReserveResponse
			if err := json.Unmarshal(claim.Body, &resp); err != nil {
				return nil, internal("decode cached response: %v", err)
			}
			return &resp, nil
		case idempotency.Pending:
			body, err := e.Idempotency.Wait(ctx, cacheKey)
			if err != nil {
				return nil, conflict("request already in progress: %v", err)
			}
			var resp ReserveResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, internal("decode cached response: %v", err)
			}
			return &resp, nil
		}
		// FirstWriter: proceed, compensating on any failure path below.
	}

	seatIDs := append([]string(nil), in.SeatIDs...)
	sort.Strings(seatIDs)

	resp, err := e.doReserve(ctx, in.UserID, seatIDs)
	if err != nil {
		if cacheKey != "" {
			_ = e.Idempotency.Abandon(ctx, cacheKey)
		}
		return nil, err
	}

	if cacheKey != "" {
		if err := e.Idempotency.Store(ctx, cacheKey, resp, e.Cfg.IdempotencyTTL); err != nil {
			return nil, internal("store idempotent response: %v", err)
		}
	}
	return resp, nil
}

func (e *Engine) doReserve(ctx context.Context, userID string, seatIDs []string) (*ReserveResponse, error) {
	seats, err := e.Seats.ByIDs(ctx, seatIDs)
	if err != nil {
		return nil, internal("load seats: %v", err)
	}
	byID := make(map[string]model.SeatStatus, len(seats))
	for _, s := range seats {
		byID[s.ID] = s.Status
	}
	for _, id := range seatIDs {
		if _, ok := byID[id]; !ok {
			return nil, notFound("seat %s not found", id)
		}
	}
	var unavailable []string
	for _, id := range seatIDs {
		if byID[id] != model.SeatAvailable {
			unavailable = append(unavailable, id)
		}
	}
	if len(unavailable) > 0 {
		return nil, conflict("seats not available: %s", strings.Join(unavailable, ", "))
	}

	lockKeys := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		lockKeys[i] = lockstore.SeatLockKey(id)
	}
	acquired, failedAt, err := e.Locks.AcquireMany(ctx, lockKeys, userID, e.Cfg.ReservationTTL)
	if err != nil {
		_ = e.Locks.ReleaseAll(ctx, acquired)
		return nil, internal("acquire seat locks: %v", err)
	}
	if failedAt >= 0 {
		_ = e.Locks.ReleaseAll(ctx, acquired)
		return nil, conflict("seat %s is already held by another request", seatIDs[failedAt])
	}

	expiresAt := time.Now().UTC().Add(e.Cfg.ReservationTTL)
	reservations, err := e.Reservations.CreateReservationsInOneTransaction(ctx, seatIDs, userID, expiresAt)
	if err != nil {
		_ = e.Locks.ReleaseAll(ctx, lockKeys)
		return nil, internal("persist reservations: %v", err)
	}

	reservationIDs := make([]string, len(reservations))
	for i, r := range reservations {
		reservationIDs[i] = r.ID
		evt := eventbus.ReservationCreated{
			ID:        r.ID,
			UserID:    r.UserID,
			SeatID:    r.SeatID,
			Status:    string(r.Status),
			ExpiresAt: r.ExpiresAt.UTC().Format(time.RFC3339),
		}
		if err := e.Events.Publish(ctx, eventbus.RoutingReservationCreated, evt); err != nil {
			// Best-effort: the reservation is already durably committed;
			// a lost event here is an acknowledged limitation.
			continue
		}
	}

	return &ReserveResponse{
		Message:          "reservation created",
		ReservationIDs:   reservationIDs,
		ExpiresAt:        expiresAt.Format(time.RFC3339),
		ExpiresInSeconds: int(e.Cfg.ReservationTTL.Seconds()),
	}, nil
}
