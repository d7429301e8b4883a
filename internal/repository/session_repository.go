package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/model"
)

// SessionRepo provides data access to the sessions table.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB returns the underlying handle so callers can compose transactions
// spanning the session and seat repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

// Create inserts a new session row. The caller must populate ID,
// MovieID, Room, Price and StartsAt; CreatedAt/UpdatedAt are set by
// the database.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (id, movie_id, room, price, starts_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.MovieID, s.Room, s.Price.StringFixed(2), s.StartsAt.UTC())
	return err
}

// GetByID returns the session with the given id, or ErrNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT id, movie_id, room, price, starts_at, created_at, updated_at
	           FROM sessions WHERE id = ?`
	var s model.Session
	var priceStr string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.MovieID, &s.Room, &priceStr, &s.StartsAt, &s.CreatedAt, &s.UpdatedAt)
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
	s.Price = price
	return &s, nil
}
