package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cinema-seats/reservation-engine/internal/model"
)

// SeatRepo provides data access to the seats table.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// CreateBulk inserts multiple AVAILABLE seats for a session in a single
// statement. Passing an empty slice has no effect.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (id, session_id, row_label, seat_number, status) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.ID, s.SessionID, s.Row, s.Number, model.SeatAvailable)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ByIDs returns the seats matching ids, in no particular order. Missing
// ids are simply absent from the result; callers check each requested id
// against the result to detect NotFound.
func (r *SeatRepo) ByIDs(ctx context.Context, ids []string) ([]model.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := fmt.Sprintf(`SELECT id, session_id, row_label, seat_number, status, created_at, updated_at
	                   FROM seats WHERE id IN (%s)`, placeholders)
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Row, &s.Number, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// BySession returns every seat belonging to a session, ordered for a
// stable seat-map listing.
func (r *SeatRepo) BySession(ctx context.Context, sessionID string) ([]model.Seat, error) {
	const q = `SELECT id, session_id, row_label, seat_number, status, created_at, updated_at
	           FROM seats WHERE session_id = ? ORDER BY row_label ASC, seat_number ASC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var seats []model.Seat
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Row, &s.Number, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// GetByID returns the seat with the given id, or ErrNotFound.
func (r *SeatRepo) GetByID(ctx context.Context, id string) (*model.Seat, error) {
	const q = `SELECT id, session_id, row_label, seat_number, status, created_at, updated_at
	           FROM seats WHERE id = ?`
	var s model.Seat
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.SessionID, &s.Row, &s.Number, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
