package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cinema-seats/reservation-engine/internal/lockstore"
	"github.com/cinema-seats/reservation-engine/internal/model"
)

func TestSeatsForSession_ComputesLockedWithoutPersisting(t *testing.T) {
	seats := newFakeSeats(
		model.Seat{ID: "s1", SessionID: "sess1", Row: "A", Number: 1, Status: model.SeatAvailable},
		model.Seat{ID: "s2", SessionID: "sess1", Row: "A", Number: 2, Status: model.SeatAvailable},
		model.Seat{ID: "s3", SessionID: "sess1", Row: "A", Number: 3, Status: model.SeatSold},
	)
	e, locks, _, _, _ := newTestEngine(seats)
	_, err := locks.Acquire(context.Background(), lockstore.SeatLockKey("s1"), "u1", time.Minute)
	require.NoError(t, err)

	views, err := e.SeatsForSession(context.Background(), "sess1")
	require.NoError(t, err)
	require.Len(t, views, 3)

	byID := map[string]SeatView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	require.Equal(t, string(model.SeatLocked), byID["s1"].Status)
	require.Equal(t, string(model.SeatAvailable), byID["s2"].Status)
	require.Equal(t, string(model.SeatSold), byID["s3"].Status)

	// The persisted seat's status is never mutated by computing the view.
	persisted, _ := seats.ByIDs(context.Background(), []string{"s1"})
	require.Equal(t, model.SeatAvailable, persisted[0].Status)
}

func TestSeatsForSession_EmptySession(t *testing.T) {
	e, _, _, _, _ := newTestEngine(newFakeSeats())
	views, err := e.SeatsForSession(context.Background(), "no-such-session")
	require.NoError(t, err)
	require.Empty(t, views)
}
