package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/model"
)

// ReservationRepo provides data access to reservations and the sales
// rows created alongside their confirmation. All multi-step writes used
// by the Confirm-Payment action run inside one transaction that
// ConfirmTransaction opens itself, so the conditional updates and the
// sale insert commit or roll back together.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateReservationsInOneTransaction inserts one PENDING reservation per
// seatId as a single atomic unit: either all rows are created or none
// are. expiresAt is shared by every row in the batch.
func (r *ReservationRepo) CreateReservationsInOneTransaction(ctx context.Context, seatIDs []string, userID string, expiresAt time.Time) ([]model.Reservation, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	reservations := make([]model.Reservation, 0, len(seatIDs))
	query := `INSERT INTO reservations (id, user_id, seat_id, status, expires_at) VALUES `
	args := make([]interface{}, 0, len(seatIDs)*5)
	for i, seatID := range seatIDs {
		id := newID()
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, id, userID, seatID, model.ReservationPending, expiresAt.UTC())
		reservations = append(reservations, model.Reservation{
			ID:        id,
			UserID:    userID,
			SeatID:    seatID,
			Status:    model.ReservationPending,
			ExpiresAt: expiresAt,
		})
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return reservations, nil
}

// ReservationWithSeatAndSession is a reservation together with its seat
// and the seat's session, as loaded by FindReservationWithSeatAndSession.
type ReservationWithSeatAndSession struct {
	Reservation model.Reservation
	Seat        model.Seat
	Session     model.Session
}

// FindReservationWithSeatAndSession joins reservations -> seats -> sessions
// for id in a single round trip.
func (r *ReservationRepo) FindReservationWithSeatAndSession(ctx context.Context, id string) (*ReservationWithSeatAndSession, error) {
	const q = `SELECT r.id, r.user_id, r.seat_id, r.status, r.expires_at, r.created_at, r.updated_at,
	                  se.id, se.session_id, se.row_label, se.seat_number, se.status, se.created_at, se.updated_at,
	                  ss.id, ss.movie_id, ss.room, ss.price, ss.starts_at, ss.created_at, ss.updated_at
	           FROM reservations r
	           JOIN seats se ON se.id = r.seat_id
	           JOIN sessions ss ON ss.id = se.session_id
	           WHERE r.id = ?`
	var out ReservationWithSeatAndSession
	var priceStr string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&out.Reservation.ID, &out.Reservation.UserID, &out.Reservation.SeatID, &out.Reservation.Status, &out.Reservation.ExpiresAt, &out.Reservation.CreatedAt, &out.Reservation.UpdatedAt,
		&out.Seat.ID, &out.Seat.SessionID, &out.Seat.Row, &out.Seat.Number, &out.Seat.Status, &out.Seat.CreatedAt, &out.Seat.UpdatedAt,
		&out.Session.ID, &out.Session.MovieID, &out.Session.Room, &priceStr, &out.Session.StartsAt, &out.Session.CreatedAt, &out.Session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, err
	}
	out.Session.Price = price
	return &out, nil
}

// ConfirmOutcome reports which of the two conditional updates in
// ConfirmTransaction actually matched a row, so the caller can tell
// which step failed; classifying a 0-row reservation result takes the
// caller a reload of the reservation.
type ConfirmOutcome struct {
	ReservationRowsAffected int64
	SeatRowsAffected        int64
}

// ConfirmTransaction executes the entire confirm-payment write in one
// DB transaction: conditionalConfirm, conditionalSellSeat, createSale.
// It stops early (without touching the seat or sale rows) if the
// reservation update does not affect exactly one row, and rolls the
// whole transaction back if the seat update does not. The sale insert
// is an upsert keyed on reservationId so re-running a confirmation that
// partially succeeded is safe.
func (r *ReservationRepo) ConfirmTransaction(ctx context.Context, reservationID, seatID string, now time.Time, amount decimal.Decimal, method model.PaymentMethod) (ConfirmOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	defer tx.Rollback()

	const confirmQ = `UPDATE reservations SET status = ? WHERE id = ? AND status = ? AND expires_at >= ?`
	confirmRes, err := tx.ExecContext(ctx, confirmQ, model.ReservationConfirmed, reservationID, model.ReservationPending, now.UTC())
	if err != nil {
		return ConfirmOutcome{}, err
	}
	confirmedRows, err := confirmRes.RowsAffected()
	if err != nil {
		return ConfirmOutcome{}, err
	}
	if confirmedRows != 1 {
		return ConfirmOutcome{ReservationRowsAffected: confirmedRows}, tx.Commit()
	}

	const sellQ = `UPDATE seats SET status = ? WHERE id = ? AND status = ?`
	sellRes, err := tx.ExecContext(ctx, sellQ, model.SeatSold, seatID, model.SeatAvailable)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	soldRows, err := sellRes.RowsAffected()
	if err != nil {
		return ConfirmOutcome{}, err
	}
	outcome := ConfirmOutcome{ReservationRowsAffected: confirmedRows, SeatRowsAffected: soldRows}
	if soldRows != 1 {
		// The deferred Rollback undoes the reservation update, so a
		// reservation is never left CONFIRMED without a sold seat and sale.
		return outcome, nil
	}

	const saleQ = `INSERT INTO sales (id, reservation_id, amount, payment_method) VALUES (?, ?, ?, ?)
	               ON DUPLICATE KEY UPDATE amount = VALUES(amount), payment_method = VALUES(payment_method)`
	if _, err := tx.ExecContext(ctx, saleQ, newID(), reservationID, amount.StringFixed(2), method); err != nil {
		return ConfirmOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return ConfirmOutcome{}, err
	}
	return outcome, nil
}

// CancelExpired transitions every reservation in ids from PENDING to
// CANCELLED provided it is still past its expiry deadline, returning
// the number of rows actually transitioned. Used both by the reaper and
// by Confirm-Payment's expiry-at-confirmation-time path.
func (r *ReservationRepo) CancelExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := fmt.Sprintf(`UPDATE reservations SET status = ? WHERE id IN (%s) AND status = ? AND expires_at < ?`, placeholders)
	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, model.ReservationCancelled)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, model.ReservationPending, now.UTC())
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListExpiredPending returns every PENDING reservation whose expiresAt
// has already passed, for the reaper to cancel.
func (r *ReservationRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT id, user_id, seat_id, status, expires_at, created_at, updated_at
	           FROM reservations WHERE status = ? AND expires_at < ?`
	rows, err := r.db.QueryContext(ctx, q, model.ReservationPending, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.SeatID, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByID returns the reservation with the given id, or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	const q = `SELECT id, user_id, seat_id, status, expires_at, created_at, updated_at
	           FROM reservations WHERE id = ?`
	var res model.Reservation
	err := r.db.QueryRowContext(ctx, q, id).Scan(&res.ID, &res.UserID, &res.SeatID, &res.Status, &res.ExpiresAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}
