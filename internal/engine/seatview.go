package engine

import (
	"context"

	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
)

// SeatView is the read-path projection of a seat: its persisted status
// with LOCKED computed in, never stored.
type SeatView struct {
	ID     string `json:"id"`
	Row    string `json:"row"`
	Number int    `json:"number"`
	Status string `json:"status"`
}

// SeatsForSession lists every seat in a session with its computed
// status: a DB-AVAILABLE seat whose lock key is present in the
// coordination store reports LOCKED; otherwise it reports its
// persisted status unchanged.
func (e *Engine) SeatsForSession(ctx context.Context, sessionID string) ([]SeatView, error) {
	seats, err := e.Seats.BySession(ctx, sessionID)
	if err != nil {
		return nil, internal("load seats: %v", err)
	}
	if len(seats) == 0 {
		return nil, nil
	}

	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = lockstore.SeatLockKey(s.ID)
	}
	owners, err := e.Locks.GetMany(ctx, keys)
	if err != nil {
		return nil, internal("read seat locks: %v", err)
	}

	views := make([]SeatView, len(seats))
	for i, s := range seats {
		status := string(s.Status)
		if s.Status == model.SeatAvailable && owners[i] != "" {
			status = string(model.SeatLocked)
		}
		views[i] = SeatView{ID: s.ID, Row: s.Row, Number: s.Number, Status: status}
	}
	return views, nil
}
