package model

import "time"

// ReservationStatus enumerates the lifecycle of a Reservation.
// PENDING transitions exactly once to CONFIRMED or CANCELLED; both are
// terminal.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a single seat held by a single user, pending payment
// confirmation or expiration. Multi-seat requests create one
// Reservation row per seat; there is no group-reservation entity.
//
// Fields:
//
//	ID        – primary key, a generated UUID.
//	UserID    – user who requested the seat.
//	SeatID    – seat being reserved.
//	Status    – PENDING, CONFIRMED or CANCELLED.
//	ExpiresAt – deadline for payment confirmation while PENDING.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Reservation struct {
	ID        string            // reservations.id
	UserID    string            // reservations.user_id
	SeatID    string            // reservations.seat_id
	Status    ReservationStatus // reservations.status
	ExpiresAt time.Time         // reservations.expires_at
	CreatedAt time.Time         // reservations.created_at
	UpdatedAt time.Time         // reservations.updated_at
}
