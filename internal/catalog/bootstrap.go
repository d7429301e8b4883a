// Package catalog provides the minimal session/seat seeding needed to
// exercise Reserve and Confirm-Payment end-to-end. Session/seat creation
// is not an HTTP feature here, so this package is a thin startup-time
// bootstrap rather than an API surface.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/model"
	"github.com/cinema-seats/reservation-engine/internal/repository"
)

// Bootstrap seeds one demo session with rows x seatsPerRow seats, unless
// a session with that id already exists.
type Bootstrap struct {
	Sessions *repository.SessionRepo
	Seats    *repository.SeatRepo
}

// New constructs a Bootstrap from its repositories.
func New(sessions *repository.SessionRepo, seats *repository.SeatRepo) *Bootstrap {
	return &Bootstrap{Sessions: sessions, Seats: seats}
}

// EnsureDemoSession seeds sessionID with a room x rows x seatsPerRow
// layout of AVAILABLE seats priced at price, returning the seat ids
// created. If the session already exists, it is left untouched and no
// seats are (re)created.
func (b *Bootstrap) EnsureDemoSession(ctx context.Context, sessionID, movieID, room string, price decimal.Decimal, startsAt time.Time, rows []string, seatsPerRow int) ([]string, error) {
	if _, err := b.Sessions.GetByID(ctx, sessionID); err == nil {
		return nil, nil
	} else if err != repository.ErrNotFound {
		return nil, fmt.Errorf("catalog: check existing session: %w", err)
	}

	session := &model.Session{
		ID:       sessionID,
		MovieID:  movieID,
		Room:     room,
		Price:    price,
		StartsAt: startsAt,
	}
	if err := b.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("catalog: create session: %w", err)
	}

	seats := make([]model.Seat, 0, len(rows)*seatsPerRow)
	ids := make([]string, 0, len(rows)*seatsPerRow)
	for _, row := range rows {
		for n := 1; n <= seatsPerRow; n++ {
			id := uuid.New().String()
			ids = append(ids, id)
			seats = append(seats, model.Seat{
				ID:        id,
				SessionID: sessionID,
				Row:       row,
				Number:    n,
				Status:    model.SeatAvailable,
			})
		}
	}
	if err := b.Seats.CreateBulk(ctx, seats); err != nil {
		return nil, fmt.Errorf("catalog: create seats: %w", err)
	}
	return ids, nil
}
