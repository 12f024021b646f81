package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/seatmap"
)

type showtimeEnv struct {
	store *memStore
	svc   *ShowtimeService
	movie *model.Movie
}

func newShowtimeEnv(t *testing.T) *showtimeEnv {
	t.Helper()
	store := newMemStore()
	svc := NewShowtimeService(
		store,
		store,
		showtimeStore{store},
		bookingStore{store},
		lock.NewKeyedMutex(),
	)
	return &showtimeEnv{store: store, svc: svc, movie: store.addMovie("Dune")}
}

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, time.UTC)
}

func (e *showtimeEnv) input(screen uint32, start, end time.Time) ShowtimeInput {
	return ShowtimeInput{
		MovieID:          e.movie.ID,
		ScreenNumber:     screen,
		StartsAt:         start,
		EndsAt:           end,
		TicketPriceCents: 1200,
	}
}

func TestCreateShowtimeBufferedConflict(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	existing, err := env.svc.Create(ctx, env.input(3, at(14, 0), at(16, 0)))
	require.NoError(t, err)
	assert.True(t, existing.IsActive)
	assert.Equal(t, model.DefaultTotalSeats, existing.TotalSeats)

	// 16:10 start leaves only ten minutes after the previous end
	_, err = env.svc.Create(ctx, env.input(3, at(16, 10), at(18, 10)))
	var conflict *model.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, existing.ID, conflict.ShowtimeID)

	// 16:31 clears the thirty-minute turnaround
	_, err = env.svc.Create(ctx, env.input(3, at(16, 31), at(18, 30)))
	assert.NoError(t, err)

	// the same contested window is fine on another screen
	_, err = env.svc.Create(ctx, env.input(4, at(16, 10), at(18, 10)))
	assert.NoError(t, err)
}

func TestCreateShowtimeBufferBeforeExisting(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.input(1, at(18, 0), at(20, 0)))
	require.NoError(t, err)

	// ending at 17:45 leaves only fifteen minutes before the 18:00 start
	_, err = env.svc.Create(ctx, env.input(1, at(15, 45), at(17, 45)))
	var conflict *model.ScheduleConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = env.svc.Create(ctx, env.input(1, at(15, 0), at(17, 29)))
	assert.NoError(t, err)
}

func TestCreateShowtimeValidation(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()
	var vErr *model.ValidationError

	in := env.input(1, at(14, 0), at(14, 0))
	_, err := env.svc.Create(ctx, in)
	require.ErrorAs(t, err, &vErr)

	in = env.input(0, at(14, 0), at(16, 0))
	_, err = env.svc.Create(ctx, in)
	require.ErrorAs(t, err, &vErr)

	in = env.input(1, at(14, 0), at(16, 0))
	in.TicketPriceCents = 0
	_, err = env.svc.Create(ctx, in)
	require.ErrorAs(t, err, &vErr)

	in = env.input(1, at(14, 0), at(16, 0))
	in.TotalSeats = seatmap.MaxSeats + 1
	_, err = env.svc.Create(ctx, in)
	require.ErrorAs(t, err, &vErr)

	in = env.input(1, at(14, 0), at(16, 0))
	in.MovieID = 999
	_, err = env.svc.Create(ctx, in)
	assert.ErrorIs(t, err, model.ErrMovieNotFound)
}

func TestUpdateShowtimeExcludesSelf(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	st, err := env.svc.Create(ctx, env.input(2, at(10, 0), at(12, 0)))
	require.NoError(t, err)

	// shifting a showtime within its own old window must not collide
	// with itself
	updated, err := env.svc.Update(ctx, st.ID, env.input(2, at(10, 30), at(12, 30)))
	require.NoError(t, err)
	assert.Equal(t, at(10, 30), updated.StartsAt)

	other, err := env.svc.Create(ctx, env.input(2, at(14, 0), at(16, 0)))
	require.NoError(t, err)
	_ = other

	_, err = env.svc.Update(ctx, st.ID, env.input(2, at(13, 45), at(15, 45)))
	var conflict *model.ScheduleConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestUpdateShowtimeSeatShrinkGuard(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	in := env.input(2, at(10, 0), at(12, 0))
	in.TotalSeats = 50
	st, err := env.svc.Create(ctx, in)
	require.NoError(t, err)

	b := &model.Booking{ShowtimeID: st.ID, UserID: 1, Seats: []string{"A1"}, Status: model.BookingPendingPayment}
	require.NoError(t, bookingStore{env.store}.Create(ctx, b))

	in.TotalSeats = 30
	_, err = env.svc.Update(ctx, st.ID, in)
	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	// growing is always allowed
	in.TotalSeats = 80
	updated, err := env.svc.Update(ctx, st.ID, in)
	require.NoError(t, err)
	assert.Equal(t, uint32(80), updated.TotalSeats)
}

func TestDeleteShowtimeWithBookings(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	st, err := env.svc.Create(ctx, env.input(5, at(20, 0), at(22, 0)))
	require.NoError(t, err)

	b := &model.Booking{ShowtimeID: st.ID, UserID: 1, Seats: []string{"A1"}, Status: model.BookingPendingPayment}
	require.NoError(t, bookingStore{env.store}.Create(ctx, b))

	require.ErrorIs(t, env.svc.Delete(ctx, st.ID), model.ErrShowtimeHasBookings)

	// released seats no longer block deletion
	require.NoError(t, bookingStore{env.store}.UpdateStatus(ctx, b.ID, model.BookingPendingPayment, model.BookingCancelled))
	require.NoError(t, env.svc.Delete(ctx, st.ID))

	_, err = env.svc.ByID(ctx, st.ID)
	assert.ErrorIs(t, err, model.ErrShowtimeNotFound)
}

func TestCheckConflictDryRun(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	st, err := env.svc.Create(ctx, env.input(6, at(14, 0), at(16, 0)))
	require.NoError(t, err)

	var conflict *model.ScheduleConflictError
	require.ErrorAs(t, env.svc.CheckConflict(ctx, 6, at(16, 10), at(18, 10), 0), &conflict)
	assert.NoError(t, env.svc.CheckConflict(ctx, 6, at(16, 31), at(18, 30), 0))
	assert.NoError(t, env.svc.CheckConflict(ctx, 6, at(16, 10), at(18, 10), st.ID))

	// nothing was created by the dry runs
	active, err := env.svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestListByMovie(t *testing.T) {
	env := newShowtimeEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.input(1, at(10, 0), at(12, 0)))
	require.NoError(t, err)
	_, err = env.svc.Create(ctx, env.input(2, at(18, 0), at(20, 0)))
	require.NoError(t, err)

	all, err := env.svc.ListByMovie(ctx, env.movie.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cutoff := at(15, 0)
	upcoming, err := env.svc.ListByMovie(ctx, env.movie.ID, &cutoff)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, at(18, 0), upcoming[0].StartsAt)

	_, err = env.svc.ListByMovie(ctx, 999, nil)
	assert.ErrorIs(t, err, model.ErrMovieNotFound)
}
