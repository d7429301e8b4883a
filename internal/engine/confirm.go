package engine

import (
	"context"
	"time"

	"github.com/cinema-seats/reservation-engine/internal/eventbus"
	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
	"github.com/cinema-seats/reservation-engine/internal/repository"
)

// ConfirmResponse is the Confirm-Payment action's response shape.
type ConfirmResponse struct {
	ReservationID string `json:"reservationId"`
	Status        string `json:"status"`
	SeatStatus    string `json:"seatStatus"`
	Amount        string `json:"amount"`
}

// ConfirmPayment loads and classifies the reservation, checks expiry,
// runs the single conditional-update transaction, publishes the
// confirmation event, and releases the seat lock best-effort.
func (e *Engine) ConfirmPayment(ctx context.Context, reservationID string) (*ConfirmResponse, error) {
	joined, err := e.Reservations.FindReservationWithSeatAndSession(ctx, reservationID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, notFound("reservation %s not found", reservationID)
		}
		return nil, internal("load reservation: %v", err)
	}

	res := joined.Reservation
	switch res.Status {
	case model.ReservationConfirmed:
		return nil, conflict("reservation %s already paid", reservationID)
	case model.ReservationCancelled:
		return nil, badRequest("reservation %s is cancelled or expired", reservationID)
	}

	now := time.Now().UTC()
	if now.After(res.ExpiresAt) {
		if _, err := e.Reservations.CancelExpired(ctx, []string{reservationID}, now); err != nil {
			return nil, internal("cancel expired reservation: %v", err)
		}
		return nil, badRequest("reservation %s expired", reservationID)
	}

	outcome, err := e.Reservations.ConfirmTransaction(ctx, reservationID, res.SeatID, now, joined.Session.Price, model.PaymentCreditCard)
	if err != nil {
		return nil, internal("confirm transaction: %v", err)
	}

	if outcome.ReservationRowsAffected != 1 {
		reload, reloadErr := e.Reservations.GetByID(ctx, reservationID)
		if reloadErr != nil {
			return nil, internal("reload reservation after failed confirm: %v", reloadErr)
		}
		switch reload.Status {
		case model.ReservationConfirmed:
			return nil, conflict("reservation %s already paid", reservationID)
		case model.ReservationCancelled:
			return nil, badRequest("reservation %s is cancelled or expired", reservationID)
		default:
			return nil, conflict("reservation %s could not be confirmed", reservationID)
		}
	}
	if outcome.SeatRowsAffected != 1 {
		return nil, conflict("seat %s already sold", res.SeatID)
	}

	evt := eventbus.PaymentConfirmed{
		ReservationID: reservationID,
		UserID:        res.UserID,
		SeatID:        res.SeatID,
		Amount:        joined.Session.Price.StringFixed(2),
		Timestamp:     now.Format(time.RFC3339),
	}
	_ = e.Events.Publish(ctx, eventbus.RoutingPaymentConfirmed, evt)

	// Best-effort release: the DB already reflects SOLD, so a failure
	// here is non-fatal.
	_ = e.Locks.Release(ctx, lockstore.SeatLockKey(res.SeatID), res.UserID)

	return &ConfirmResponse{
		ReservationID: reservationID,
		Status:        string(model.ReservationConfirmed),
		SeatStatus:    string(model.SeatSold),
		Amount:        joined.Session.Price.StringFixed(2),
	}, nil
}
