package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/config"
	"github.com/cinema-seats/reservation-engine/internal/idempotency"
	"github.com/cinema-seats/reservation-engine/internal/model"
	"github.com/cinema-seats/reservation-engine/internal/repository"
)

// lockStore is the narrow seam the engine depends on, satisfied by
// *lockstore.Store; tests substitute an in-memory fake.
type lockStore interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
	ReleaseAll(ctx context.Context, keys []string) error
	GetMany(ctx context.Context, keys []string) ([]string, error)
	AcquireMany(ctx context.Context, keys []string, owner string, ttl time.Duration) (acquired []string, failedAt int, err error)
}

// idempotencyStore is the narrow seam the engine depends on, satisfied
// by *idempotency.Store.
type idempotencyStore interface {
	Claim(ctx context.Context, cacheKey string, ttl time.Duration) (idempotency.ClaimResult, error)
	Wait(ctx context.Context, cacheKey string) (json.RawMessage, error)
	Store(ctx context.Context, cacheKey string, body any, ttl time.Duration) error
	Abandon(ctx context.Context, cacheKey string) error
}

// eventPublisher is the narrow seam the engine depends on, satisfied by
// *eventbus.Publisher; tests substitute a fake that records calls.
type eventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// seatRepo is the subset of *repository.SeatRepo the engine depends on.
type seatRepo interface {
	ByIDs(ctx context.Context, ids []string) ([]model.Seat, error)
	BySession(ctx context.Context, sessionID string) ([]model.Seat, error)
}

// reservationRepo is the subset of *repository.ReservationRepo the
// engine depends on.
type reservationRepo interface {
	CreateReservationsInOneTransaction(ctx context.Context, seatIDs []string, userID string, expiresAt time.Time) ([]model.Reservation, error)
	FindReservationWithSeatAndSession(ctx context.Context, id string) (*repository.ReservationWithSeatAndSession, error)
	ConfirmTransaction(ctx context.Context, reservationID, seatID string, now time.Time, amount decimal.Decimal, method model.PaymentMethod) (repository.ConfirmOutcome, error)
	CancelExpired(ctx context.Context, ids []string, now time.Time) (int64, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
}

// Engine wires the coordination store, idempotency cache, event bus and
// repositories into the Reserve and Confirm-Payment actions.
type Engine struct {
	Locks        lockStore
	Idempotency  idempotencyStore
	Events       eventPublisher
	Reservations reservationRepo
	Seats        seatRepo
	Cfg          config.ReservationConfig
}

// New constructs an Engine from its dependencies.
func New(locks lockStore, idem idempotencyStore, events eventPublisher, reservations reservationRepo, seats seatRepo, cfg config.ReservationConfig) *Engine {
	return &Engine{
		Locks:        locks,
		Idempotency:  idem,
		Events:       events,
		Reservations: reservations,
		Seats:        seats,
		Cfg:          cfg,
	}
}
