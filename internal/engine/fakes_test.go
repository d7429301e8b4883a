package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinema-seats/reservation-engine/internal/idempotency"
	"github.com/cinema-seats/reservation-engine/internal/model"
	"github.com/cinema-seats/reservation-engine/internal/repository"
)

// fakeLocks is an in-memory stand-in for *lockstore.Store, exercising the
// same owner-checked semantics without a Redis dependency.
type fakeLocks struct {
	mu   sync.Mutex
	vals map[string]string
}

func newFakeLocks() *fakeLocks { return &fakeLocks{vals: map[string]string{}} }

func (f *fakeLocks) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.vals[key]; ok {
		return false, nil
	}
	f.vals[key] = owner
	return true, nil
}

func (f *fakeLocks) Release(ctx context.Context, key, owner string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.vals[key] == owner {
		delete(f.vals, key)
	}
	return nil
}

func (f *fakeLocks) ReleaseAll(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.vals, k)
	}
	return nil
}

func (f *fakeLocks) GetMany(ctx context.Context, keys []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = f.vals[k]
	}
	return out, nil
}

func (f *fakeLocks) AcquireMany(ctx context.Context, keys []string, owner string, ttl time.Duration) ([]string, int, error) {
	acquired := make([]string, 0, len(keys))
	for i, k := range keys {
		ok, err := f.Acquire(ctx, k, owner, ttl)
		if err != nil {
			return acquired, i, err
		}
		if !ok {
			return acquired, i, nil
		}
		acquired = append(acquired, k)
	}
	return acquired, -1, nil
}

// fakeIdempotency is an in-memory stand-in for *idempotency.Store.
type fakeIdempotency struct {
	mu    sync.Mutex
	state map[string]json.RawMessage // nil body => processing
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{state: map[string]json.RawMessage{}}
}

func (f *fakeIdempotency) Claim(ctx context.Context, cacheKey string, ttl time.Duration) (idempotency.ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, exists := f.state[cacheKey]
	if !exists {
		f.state[cacheKey] = nil
		return idempotency.ClaimResult{Outcome: idempotency.FirstWriter}, nil
	}
	if body == nil {
		return idempotency.ClaimResult{Outcome: idempotency.Pending}, nil
	}
	return idempotency.ClaimResult{Outcome: idempotency.Hit, Body: body}, nil
}

func (f *fakeIdempotency) Wait(ctx context.Context, cacheKey string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[cacheKey], nil
}

func (f *fakeIdempotency) Store(ctx context.Context, cacheKey string, body any, ttl time.Duration) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[cacheKey] = raw
	return nil
}

func (f *fakeIdempotency) Abandon(ctx context.Context, cacheKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.state, cacheKey)
	return nil
}

// fakePublisher records every published event instead of talking to RabbitMQ.
type fakePublisher struct {
	mu        sync.Mutex
	published []fakePublished
}

type fakePublished struct {
	RoutingKey string
	Payload    any
}

func newFakePublisher() *fakePublisher { return &fakePublisher{} }

func (f *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, fakePublished{RoutingKey: routingKey, Payload: payload})
	return nil
}

func (f *fakePublisher) count(routingKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.published {
		if p.RoutingKey == routingKey {
			n++
		}
	}
	return n
}

// fakeSeats is an in-memory stand-in for *repository.SeatRepo.
type fakeSeats struct {
	bySession map[string][]model.Seat
	byID      map[string]model.Seat
}

func newFakeSeats(seats ...model.Seat) *fakeSeats {
	f := &fakeSeats{bySession: map[string][]model.Seat{}, byID: map[string]model.Seat{}}
	for _, s := range seats {
		f.bySession[s.SessionID] = append(f.bySession[s.SessionID], s)
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeSeats) ByIDs(ctx context.Context, ids []string) ([]model.Seat, error) {
	var out []model.Seat
	for _, id := range ids {
		if s, ok := f.byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSeats) BySession(ctx context.Context, sessionID string) ([]model.Seat, error) {
	return f.bySession[sessionID], nil
}

// fakeReservations is an in-memory stand-in for *repository.ReservationRepo.
type fakeReservations struct {
	mu           sync.Mutex
	reservations map[string]model.Reservation
	joined       map[string]repository.ReservationWithSeatAndSession
	seatStatus   map[string]model.SeatStatus

	confirmCalls int
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{
		reservations: map[string]model.Reservation{},
		joined:       map[string]repository.ReservationWithSeatAndSession{},
		seatStatus:   map[string]model.SeatStatus{},
	}
}

func (f *fakeReservations) CreateReservationsInOneTransaction(ctx context.Context, seatIDs []string, userID string, expiresAt time.Time) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Reservation, 0, len(seatIDs))
	for i, seatID := range seatIDs {
		r := model.Reservation{
			ID:        "res-" + seatID,
			UserID:    userID,
			SeatID:    seatID,
			Status:    model.ReservationPending,
			ExpiresAt: expiresAt,
		}
		_ = i
		f.reservations[r.ID] = r
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReservations) FindReservationWithSeatAndSession(ctx context.Context, id string) (*repository.ReservationWithSeatAndSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.joined[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r, ok := f.reservations[id]; ok {
		j.Reservation = r
	}
	return &j, nil
}

func (f *fakeReservations) ConfirmTransaction(ctx context.Context, reservationID, seatID string, now time.Time, amount decimal.Decimal, method model.PaymentMethod) (repository.ConfirmOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmCalls++

	res, ok := f.reservations[reservationID]
	if !ok || res.Status != model.ReservationPending || now.After(res.ExpiresAt) {
		return repository.ConfirmOutcome{ReservationRowsAffected: 0}, nil
	}
	if f.seatStatus[seatID] != model.SeatAvailable {
		// Rolled back: the reservation stays PENDING.
		return repository.ConfirmOutcome{ReservationRowsAffected: 1, SeatRowsAffected: 0}, nil
	}
	res.Status = model.ReservationConfirmed
	f.reservations[reservationID] = res
	f.seatStatus[seatID] = model.SeatSold
	return repository.ConfirmOutcome{ReservationRowsAffected: 1, SeatRowsAffected: 1}, nil
}

func (f *fakeReservations) CancelExpired(ctx context.Context, ids []string, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		res, ok := f.reservations[id]
		if !ok || res.Status != model.ReservationPending || !now.After(res.ExpiresAt) {
			continue
		}
		res.Status = model.ReservationCancelled
		f.reservations[id] = res
		n++
	}
	return n, nil
}

func (f *fakeReservations) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}
