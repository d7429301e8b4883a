// Package reaper runs a leader-elected expiration sweep: on a fixed
// tick, one replica claims the leader lock, cancels PENDING
// reservations whose deadline has passed, and reclaims their seat locks,
// publishing seat-released/reservation-expired events. The "run
// forever, tolerate transient failure" tick loop generalizes a
// reconnect-and-retry consumer loop shape to a periodic sweep.
package reaper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cinema-seats/reservation-engine/internal/config"
	"github.com/cinema-seats/reservation-engine/internal/eventbus"
	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
)

// eventPublisher mirrors engine.eventPublisher so the reaper can take
// the same *eventbus.Publisher without an import cycle.
type eventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// lockStore mirrors engine.lockStore's Acquire/Release subset.
type lockStore interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// reservationRepo is the subset of *repository.ReservationRepo the
// reaper depends on.
type reservationRepo interface {
	ListExpiredPending(ctx context.Context, now time.Time) ([]model.Reservation, error)
	CancelExpired(ctx context.Context, ids []string, now time.Time) (int64, error)
}

// Reaper owns one tick loop per process; across replicas, the leader
// lock bounds in-flight reapers to approximately one.
type Reaper struct {
	Locks        lockStore
	Reservations reservationRepo
	Events       eventPublisher
	Cfg          config.ReservationConfig
}

// New constructs a Reaper from its dependencies.
func New(locks lockStore, reservations reservationRepo, events eventPublisher, cfg config.ReservationConfig) *Reaper {
	return &Reaper{Locks: locks, Reservations: reservations, Events: events, Cfg: cfg}
}

// Run ticks every Cfg.ReaperPeriod until ctx is cancelled. It never
// returns an error: transient failures are logged and the loop
// continues on the next tick. Correctness depends on the conditional
// DB update, not on the leader lock, which only bounds duplicate work.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Cfg.ReaperPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reaper) tick(ctx context.Context) {
	token := uuid.New().String()
	acquired, err := r.Locks.Acquire(ctx, lockstore.ReaperLockKey, token, r.Cfg.ReaperLeaderTTL)
	if err != nil {
		log.Printf("reaper: acquire leader lock: %v", err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := r.Locks.Release(ctx, lockstore.ReaperLockKey, token); err != nil {
			log.Printf("reaper: release leader lock: %v", err)
		}
	}()

	now := time.Now().UTC()
	candidates, err := r.Reservations.ListExpiredPending(ctx, now)
	if err != nil {
		log.Printf("reaper: list expired pending: %v", err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	affected, err := r.Reservations.CancelExpired(ctx, ids, now)
	if err != nil {
		log.Printf("reaper: cancel expired: %v", err)
		return
	}
	if affected == 0 {
		// Another leader already handled this batch.
		return
	}

	for _, c := range candidates {
		if err := r.Locks.Release(ctx, lockstore.SeatLockKey(c.SeatID), c.UserID); err != nil {
			log.Printf("reaper: release seat lock %s: %v", c.SeatID, err)
		}
		ts := now.Format(time.RFC3339)
		if err := r.Events.Publish(ctx, eventbus.RoutingReservationExpired, eventbus.ReservationExpired{
			ReservationID: c.ID,
			SeatID:        c.SeatID,
			UserID:        c.UserID,
			Reason:        "TIMEOUT",
			Timestamp:     ts,
		}); err != nil {
			log.Printf("reaper: publish reservation.expired: %v", err)
		}
		if err := r.Events.Publish(ctx, eventbus.RoutingSeatReleased, eventbus.SeatReleased{
			SeatID:        c.SeatID,
			ReservationID: c.ID,
			UserID:        c.UserID,
			Reason:        "RESERVATION_EXPIRED",
			Timestamp:     ts,
		}); err != nil {
			log.Printf("reaper: publish seat.released: %v", err)
		}
	}
}
