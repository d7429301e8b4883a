package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cinema-seats/reservation-engine/internal/model"
)

func TestSeatRepo_CreateBulkAndByIDs(t *testing.T) {
	db := setupTestDB(t)
	truncateAll(t, db)
	ctx := context.Background()

	sessionID := uuid.New().String()
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, movie_id, room, price, starts_at) VALUES (?, ?, ?, ?, NOW())`,
		sessionID, "movie-1", "Room 1", "10.00")
	require.NoError(t, err)

	repo := NewSeatRepo(db)
	s1, s2 := uuid.New().String(), uuid.New().String()
	err = repo.CreateBulk(ctx, []model.Seat{
		{ID: s1, SessionID: sessionID, Row: "A", Number: 1},
		{ID: s2, SessionID: sessionID, Row: "A", Number: 2},
	})
	require.NoError(t, err)

	found, err := repo.ByIDs(ctx, []string{s1, s2, "missing"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, s := range found {
		require.Equal(t, model.SeatAvailable, s.Status)
	}

	bySession, err := repo.BySession(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, bySession, 2)
}

func TestSeatRepo_GetByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	truncateAll(t, db)
	repo := NewSeatRepo(db)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}
