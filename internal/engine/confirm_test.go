package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cinema-seats/reservation-engine/internal/eventbus"
	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
	"github.com/cinema-seats/reservation-engine/internal/repository"
)

func seedReservation(f *fakeReservations, id, userID, seatID string, status model.ReservationStatus, expiresAt time.Time) {
	f.reservations[id] = model.Reservation{
		ID: id, UserID: userID, SeatID: seatID, Status: status, ExpiresAt: expiresAt,
	}
	f.joined[id] = repository.ReservationWithSeatAndSession{
		Seat:    model.Seat{ID: seatID, SessionID: "sess1", Status: model.SeatAvailable},
		Session: model.Session{ID: "sess1", Price: decimal.NewFromInt(10)},
	}
	f.seatStatus[seatID] = model.SeatAvailable
}

func TestConfirmPayment_HappyPath(t *testing.T) {
	e, locks, _, pub, reservations := newTestEngine(newFakeSeats())
	_, _ = locks.Acquire(context.Background(), lockstore.SeatLockKey("s1"), "u1", time.Minute)
	seedReservation(reservations, "r1", "u1", "s1", model.ReservationPending, time.Now().Add(time.Minute))

	resp, err := e.ConfirmPayment(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, string(model.ReservationConfirmed), resp.Status)
	require.Equal(t, string(model.SeatSold), resp.SeatStatus)
	require.Equal(t, 1, pub.count(eventbus.RoutingPaymentConfirmed))
	require.Empty(t, locks.vals[lockstore.SeatLockKey("s1")])
}

func TestConfirmPayment_NotFound(t *testing.T) {
	e, _, _, _, _ := newTestEngine(newFakeSeats())
	_, err := e.ConfirmPayment(context.Background(), "missing")
	require.Error(t, err)
	require.Equal(t, NotFound, KindOf(err))
}

func TestConfirmPayment_AlreadyConfirmedIsConflict(t *testing.T) {
	e, _, _, _, reservations := newTestEngine(newFakeSeats())
	seedReservation(reservations, "r1", "u1", "s1", model.ReservationConfirmed, time.Now().Add(time.Minute))

	_, err := e.ConfirmPayment(context.Background(), "r1")
	require.Error(t, err)
	require.Equal(t, Conflict, KindOf(err))
}

func TestConfirmPayment_CancelledIsBadRequest(t *testing.T) {
	e, _, _, _, reservations := newTestEngine(newFakeSeats())
	seedReservation(reservations, "r1", "u1", "s1", model.ReservationCancelled, time.Now().Add(time.Minute))

	_, err := e.ConfirmPayment(context.Background(), "r1")
	require.Error(t, err)
	require.Equal(t, BadRequest, KindOf(err))
}

// TestConfirmPayment_ExpiredAtConfirmationTime asserts the
// expiry-wins-over-confirm law: a reservation past its deadline is
// cancelled in place instead of confirmed, even though no reaper tick
// has run yet.
func TestConfirmPayment_ExpiredAtConfirmationTime(t *testing.T) {
	e, _, _, _, reservations := newTestEngine(newFakeSeats())
	seedReservation(reservations, "r1", "u1", "s1", model.ReservationPending, time.Now().Add(-time.Minute))

	_, err := e.ConfirmPayment(context.Background(), "r1")
	require.Error(t, err)
	require.Equal(t, BadRequest, KindOf(err))

	reloaded, err := reservations.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, model.ReservationCancelled, reloaded.Status)
}

// TestConfirmPayment_SecondConfirmIsConflict reproduces the
// confirm-exactly-once invariant: once a reservation is CONFIRMED, a
// second Confirm-Payment call never re-sells the seat.
func TestConfirmPayment_SecondConfirmIsConflict(t *testing.T) {
	e, locks, _, _, reservations := newTestEngine(newFakeSeats())
	_, _ = locks.Acquire(context.Background(), lockstore.SeatLockKey("s1"), "u1", time.Minute)
	seedReservation(reservations, "r1", "u1", "s1", model.ReservationPending, time.Now().Add(time.Minute))

	_, err := e.ConfirmPayment(context.Background(), "r1")
	require.NoError(t, err)

	_, err = e.ConfirmPayment(context.Background(), "r1")
	require.Error(t, err)
	require.Equal(t, Conflict, KindOf(err))
	require.Equal(t, 1, reservations.seatCount(model.SeatSold))
}

func (f *fakeReservations) seatCount(status model.SeatStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.seatStatus {
		if s == status {
			n++
		}
	}
	return n
}
