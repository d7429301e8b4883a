package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cinema-seats/reservation-engine/internal/model"
)

func TestCreateReservationsInOneTransaction_InsertsOnePerSeat(t *testing.T) {
	db := setupTestDB(t)
	truncateAll(t, db)
	ctx := context.Background()

	sessionID := uuid.New().String()
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, movie_id, room, price, starts_at) VALUES (?, ?, ?, ?, NOW())`,
		sessionID, "movie-1", "Room 1", "10.00")
	require.NoError(t, err)

	seatRepo := NewSeatRepo(db)
	s1, s2 := uuid.New().String(), uuid.New().String()
	require.NoError(t, seatRepo.CreateBulk(ctx, []model.Seat{
		{ID: s1, SessionID: sessionID, Row: "A", Number: 1},
		{ID: s2, SessionID: sessionID, Row: "A", Number: 2},
	}))

	repo := NewReservationRepo(db)
	expiresAt := time.Now().Add(time.Minute)
	reservations, err := repo.CreateReservationsInOneTransaction(ctx, []string{s1, s2}, "user-1", expiresAt)
	require.NoError(t, err)
	require.Len(t, reservations, 2)
	for _, r := range reservations {
		require.Equal(t, model.ReservationPending, r.Status)
		require.Equal(t, "user-1", r.UserID)
	}
}

// TestConfirmTransaction_ConcurrentConfirmsNeverDoubleSell asserts the
// confirm-exactly-once invariant: many concurrent confirm attempts
// against the same reservation/seat pair result in exactly one
// successful sale.
func TestConfirmTransaction_ConcurrentConfirmsNeverDoubleSell(t *testing.T) {
	db := setupTestDB(t)
	truncateAll(t, db)
	ctx := context.Background()

	sessionID := uuid.New().String()
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, movie_id, room, price, starts_at) VALUES (?, ?, ?, ?, NOW())`,
		sessionID, "movie-1", "Room 1", "10.00")
	require.NoError(t, err)

	seatRepo := NewSeatRepo(db)
	seatID := uuid.New().String()
	require.NoError(t, seatRepo.CreateBulk(ctx, []model.Seat{{ID: seatID, SessionID: sessionID, Row: "A", Number: 1}}))

	repo := NewReservationRepo(db)
	reservations, err := repo.CreateReservationsInOneTransaction(ctx, []string{seatID}, "user-1", time.Now().Add(time.Minute))
	require.NoError(t, err)
	reservationID := reservations[0].ID

	const attempts = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	now := time.Now()
	amount := decimal.NewFromFloat(10.00)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := repo.ConfirmTransaction(ctx, reservationID, seatID, now, amount, model.PaymentCreditCard)
			if err != nil {
				return
			}
			if outcome.ReservationRowsAffected == 1 && outcome.SeatRowsAffected == 1 {
				mu.Lock()
				sold++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, sold)

	seat, err := seatRepo.GetByID(ctx, seatID)
	require.NoError(t, err)
	require.Equal(t, model.SeatSold, seat.Status)

	reservation, err := repo.GetByID(ctx, reservationID)
	require.NoError(t, err)
	require.Equal(t, model.ReservationConfirmed, reservation.Status)
}

func TestCancelExpired_OnlyTransitionsPastDeadline(t *testing.T) {
	db := setupTestDB(t)
	truncateAll(t, db)
	ctx := context.Background()

	sessionID := uuid.New().String()
	_, err := db.ExecContext(ctx, `INSERT INTO sessions (id, movie_id, room, price, starts_at) VALUES (?, ?, ?, ?, NOW())`,
		sessionID, "movie-1", "Room 1", "10.00")
	require.NoError(t, err)

	seatRepo := NewSeatRepo(db)
	s1, s2 := uuid.New().String(), uuid.New().String()
	require.NoError(t, seatRepo.CreateBulk(ctx, []model.Seat{
		{ID: s1, SessionID: sessionID, Row: "A", Number: 1},
		{ID: s2, SessionID: sessionID, Row: "A", Number: 2},
	}))

	repo := NewReservationRepo(db)
	expired, err := repo.CreateReservationsInOneTransaction(ctx, []string{s1}, "user-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	fresh, err := repo.CreateReservationsInOneTransaction(ctx, []string{s2}, "user-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	now := time.Now()
	affected, err := repo.CancelExpired(ctx, []string{expired[0].ID, fresh[0].ID}, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	candidates, err := repo.ListExpiredPending(ctx, now)
	require.NoError(t, err)
	require.Empty(t, candidates)

	reloadedFresh, err := repo.GetByID(ctx, fresh[0].ID)
	require.NoError(t, err)
	require.Equal(t, model.ReservationPending, reloadedFresh.Status)
}
