package model

import "time"

// SeatStatus enumerates the persisted states of a seat. LOCKED is a
// schema value that is never written by this module; it exists so the
// database enum stays compatible with consumers that expect it, and is
// produced only as a computed value by the read path (see
// internal/engine.SeatView) when a coordination-store lock is present
// over a DB-AVAILABLE seat.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatLocked    SeatStatus = "LOCKED"
	SeatSold      SeatStatus = "SOLD"
)

// Seat is one bookable position within a Session's room. (sessionId,
// row, number) is unique. Status transitions AVAILABLE -> SOLD only
// and never reverses.
//
// Fields:
//
//	ID        – primary key, a generated UUID.
//	SessionID – session this seat belongs to.
//	Row       – row label.
//	Number    – seat number within the row.
//	Status    – AVAILABLE or SOLD (LOCKED is never persisted).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Seat struct {
	ID        string     // seats.id
	SessionID string     // seats.session_id
	Row       string     // seats.row_label
	Number    int        // seats.seat_number
	Status    SeatStatus // seats.status
	CreatedAt time.Time  // seats.created_at
	UpdatedAt time.Time  // seats.updated_at
}
