package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// fakeClock is a mutable time source shared by the services under
// test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type bookingEnv struct {
	store    *memStore
	clock    *fakeClock
	svc      *BookingService
	showtime *model.Showtime
}

func newBookingEnv(t *testing.T, totalSeats uint32) *bookingEnv {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	movie := store.addMovie("Interstellar")
	start := clock.Now().Add(24 * time.Hour)
	st := store.addShowtime(movie.ID, 1, start, start.Add(2*time.Hour), totalSeats, 1500)
	svc := NewBookingService(
		store,
		showtimeStore{store},
		bookingStore{store},
		ticketStore{store},
		lock.NewKeyedMutex(),
		lock.NewKeyedMutex(),
		WithBookingClock(clock.Now),
	)
	return &bookingEnv{store: store, clock: clock, svc: svc, showtime: st}
}

func TestReserveAllOrNothing(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	first, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPendingPayment, first.Status)
	assert.Equal(t, uint32(3000), first.TotalPriceCents)
	assert.Contains(t, first.Reference, "BK-")

	_, err = env.svc.Reserve(ctx, env.showtime.ID, 2, []string{"A2", "A3"})
	var unavailable *model.SeatUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "A2", unavailable.Seat)

	// the failed request must not have claimed A3
	av, err := env.svc.Availability(ctx, env.showtime.ID)
	require.NoError(t, err)
	assert.Contains(t, av.FreeSeats, "A3")
	assert.ElementsMatch(t, []string{"A1", "A2"}, av.BookedSeats)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	env := newBookingEnv(t, 20)
	ctx := context.Background()

	const contenders = 16
	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Reserve(ctx, env.showtime.ID, uint64(i+1), []string{"B5"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var unavailable *model.SeatUnavailableError
		require.ErrorAs(t, err, &unavailable)
	}
	assert.Equal(t, 1, wins)

	av, err := env.svc.Availability(ctx, env.showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"B5"}, av.BookedSeats)
}

func TestReserveValidation(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	var vErr *model.ValidationError

	_, err := env.svc.Reserve(ctx, env.showtime.ID, 1, nil)
	require.ErrorAs(t, err, &vErr)

	_, err = env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"Z9"})
	require.ErrorAs(t, err, &vErr)

	_, err = env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1", "A1"})
	require.ErrorAs(t, err, &vErr)

	_, err = env.svc.Reserve(ctx, 999, 1, []string{"A1"})
	assert.ErrorIs(t, err, model.ErrShowtimeNotFound)
}

func TestReserveInactiveShowtime(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()
	require.NoError(t, showtimeStore{env.store}.SetActive(ctx, env.showtime.ID, false))

	_, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1"})
	var stateErr *model.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestReserveFreesExpiredHold(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	stale, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1", "A2"})
	require.NoError(t, err)

	env.clock.Advance(env.svc.TTL() + time.Minute)

	fresh, err := env.svc.Reserve(ctx, env.showtime.ID, 2, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)

	got, err := bookingStore{env.store}.ByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.Status)
}

func TestCancelReleasesSeats(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	b, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A4"})
	require.NoError(t, err)

	require.ErrorIs(t, env.svc.Cancel(ctx, b.ID, 2), model.ErrUnauthorized)
	require.NoError(t, env.svc.Cancel(ctx, b.ID, 1))

	av, err := env.svc.Availability(ctx, env.showtime.ID)
	require.NoError(t, err)
	assert.Contains(t, av.FreeSeats, "A4")

	// cancelling twice is rejected, the booking is no longer pending
	var stateErr *model.InvalidStateError
	assert.ErrorAs(t, env.svc.Cancel(ctx, b.ID, 1), &stateErr)
}

func TestAdminCancelConfirmedBooking(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	b, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A7"})
	require.NoError(t, err)
	require.NoError(t, bookingStore{env.store}.UpdateStatus(ctx, b.ID, model.BookingPendingPayment, model.BookingConfirmed))
	tk := &model.Ticket{BookingID: b.ID, Code: "MOVIE_TICKET:x:1:aa", IsValid: true}
	require.NoError(t, ticketStore{env.store}.Create(ctx, tk))

	require.NoError(t, env.svc.AdminCancel(ctx, b.ID))

	got, err := bookingStore{env.store}.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	gotTk, err := ticketStore{env.store}.ByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, gotTk.IsValid)

	var stateErr *model.InvalidStateError
	assert.ErrorAs(t, env.svc.AdminCancel(ctx, b.ID), &stateErr)
}

func TestExpireDueSweep(t *testing.T) {
	env := newBookingEnv(t, 30)
	ctx := context.Background()

	b1, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1"})
	require.NoError(t, err)
	b2, err := env.svc.Reserve(ctx, env.showtime.ID, 2, []string{"A2"})
	require.NoError(t, err)
	require.NoError(t, bookingStore{env.store}.UpdateStatus(ctx, b2.ID, model.BookingPendingPayment, model.BookingConfirmed))

	env.clock.Advance(env.svc.TTL() + time.Second)

	// a fresh pending booking on another showtime must survive the
	// sweep; reserving there keeps this showtime's lazy expiry out
	// of the picture so the sweep itself expires b1
	other := env.store.addShowtime(env.showtime.MovieID, 2,
		env.showtime.StartsAt.Add(6*time.Hour), env.showtime.EndsAt.Add(6*time.Hour), 30, 1500)
	b3, err := env.svc.Reserve(ctx, other.ID, 3, []string{"A3"})
	require.NoError(t, err)

	n, err := env.svc.ExpireDue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for id, want := range map[uint64]model.BookingStatus{
		b1.ID: model.BookingExpired,
		b2.ID: model.BookingConfirmed,
		b3.ID: model.BookingPendingPayment,
	} {
		got, err := bookingStore{env.store}.ByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestAvailabilityLayout(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	av, err := env.svc.Availability(ctx, env.showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(12), av.TotalSeats)
	assert.Len(t, av.AllSeats, 12)
	assert.Equal(t, "A1", av.AllSeats[0])
	assert.Equal(t, "A10", av.AllSeats[9])
	assert.Equal(t, "B1", av.AllSeats[10])
	assert.Equal(t, "B2", av.AllSeats[11])
	assert.Empty(t, av.BookedSeats)
	assert.Equal(t, av.AllSeats, av.FreeSeats)
}

func TestByIDForUserVisibility(t *testing.T) {
	env := newBookingEnv(t, 12)
	ctx := context.Background()

	b, err := env.svc.Reserve(ctx, env.showtime.ID, 1, []string{"A1"})
	require.NoError(t, err)

	got, err := env.svc.ByIDForUser(ctx, b.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = env.svc.ByIDForUser(ctx, b.ID, 2, false)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)

	_, err = env.svc.ByIDForUser(ctx, b.ID, 2, true)
	assert.NoError(t, err)
}

func TestReserveManySeatsConcurrently(t *testing.T) {
	env := newBookingEnv(t, 100)
	ctx := context.Background()

	// every contender asks for an overlapping window of three seats;
	// winners must end up with pairwise disjoint seat sets
	seats := []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8"}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			offset := i % 6
			_, err := env.svc.Reserve(ctx, env.showtime.ID, uint64(i+1), seats[offset:offset+3])
			if err != nil {
				var unavailable *model.SeatUnavailableError
				if !errors.As(err, &unavailable) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	held, err := bookingStore{env.store}.SeatsHeld(ctx, env.showtime.ID)
	require.NoError(t, err)
	seen := make(map[string]bool, len(held))
	for _, s := range held {
		assert.False(t, seen[s], "seat %s double booked", s)
		seen[s] = true
	}
}
