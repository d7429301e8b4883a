package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session represents a single scheduled screening of a movie in a
// room. Sessions own the Seats sold against them.
//
// Fields:
//
//	ID        – primary key, a generated UUID.
//	MovieID   – external reference to the movie being screened.
//	Room      – the physical room/auditorium name.
//	Price     – ticket price applied to every seat at confirmation time.
//	StartsAt  – when the screening begins; must be in the future at creation.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Session struct {
	ID        string          // sessions.id
	MovieID   string          // sessions.movie_id
	Room      string          // sessions.room
	Price     decimal.Decimal // sessions.price, numeric(10,2)
	StartsAt  time.Time       // sessions.starts_at
	CreatedAt time.Time       // sessions.created_at
	UpdatedAt time.Time       // sessions.updated_at
}
