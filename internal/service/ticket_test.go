package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

type ticketEnv struct {
	store   *memStore
	clock   *fakeClock
	svc     *TicketService
	booking *model.Booking
}

func newTicketEnv(t *testing.T, status model.BookingStatus) *ticketEnv {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	movie := store.addMovie("Arrival")
	start := clock.Now().Add(24 * time.Hour)
	st := store.addShowtime(movie.ID, 1, start, start.Add(2*time.Hour), 30, 1800)

	b := &model.Booking{
		ShowtimeID: st.ID,
		UserID:     1,
		Seats:      []string{"C3"},
		Status:     status,
		Reference:  NewBookingReference(),
		CreatedAt:  clock.Now(),
	}
	require.NoError(t, bookingStore{store}.Create(context.Background(), b))

	svc := NewTicketService(
		store, bookingStore{store}, ticketStore{store}, lock.NewKeyedMutex(),
		WithTicketClock(clock.Now),
		WithQREncoder(func(string) (string, error) { return "cXI=", nil }),
	)
	return &ticketEnv{store: store, clock: clock, svc: svc, booking: b}
}

func TestIssueTicket(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)
	assert.True(t, tk.IsValid)
	assert.Equal(t, "cXI=", tk.QRCodeBase64)
	assert.True(t, ValidRedemptionCode(tk.Code))
	assert.Contains(t, tk.Code, env.booking.Reference)
}

func TestIssueTicketIdempotent(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	first, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)
	second, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Code, second.Code)
}

func TestIssueTicketRequiresConfirmedBooking(t *testing.T) {
	for _, status := range []model.BookingStatus{
		model.BookingPendingPayment,
		model.BookingCancelled,
		model.BookingExpired,
	} {
		t.Run(string(status), func(t *testing.T) {
			env := newTicketEnv(t, status)
			_, err := env.svc.Issue(context.Background(), env.booking.ID)
			var stateErr *model.InvalidStateError
			assert.ErrorAs(t, err, &stateErr)
		})
	}
}

func TestIssueTicketSurvivesQRFailure(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	env.svc.encode = func(string) (string, error) { return "", assert.AnError }

	tk, err := env.svc.Issue(context.Background(), env.booking.ID)
	require.NoError(t, err)
	assert.Empty(t, tk.QRCodeBase64)
	assert.True(t, tk.IsValid)
}

func TestValidateTicket(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)

	got, err := env.svc.Validate(ctx, tk.Code)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	// validation does not consume the ticket
	_, err = env.svc.Validate(ctx, tk.Code)
	assert.NoError(t, err)
}

func TestValidateTicketRejections(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	_, err := env.svc.Validate(ctx, "not-a-code")
	assert.ErrorIs(t, err, model.ErrInvalidCode)

	_, err = env.svc.Validate(ctx, "MOVIE_TICKET:BK-00000000:1717243200000:deadbeef")
	assert.ErrorIs(t, err, model.ErrTicketNotFound)

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.Invalidate(ctx, tk.ID))

	_, err = env.svc.Validate(ctx, tk.Code)
	assert.ErrorIs(t, err, model.ErrTicketInvalid)
}

func TestValidateTicketDeadBooking(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)

	// the ticket itself is untouched but its booking got cancelled
	require.NoError(t, bookingStore{env.store}.UpdateStatus(ctx, env.booking.ID, model.BookingConfirmed, model.BookingCancelled))

	_, err = env.svc.Validate(ctx, tk.Code)
	assert.ErrorIs(t, err, model.ErrTicketInvalid)
}

func TestInvalidateTicketIdempotent(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)

	require.NoError(t, env.svc.Invalidate(ctx, tk.ID))

	// a repeated invalidation is a no-op, not an error
	require.NoError(t, env.svc.Invalidate(ctx, tk.ID))
	got, err := ticketStore{env.store}.ByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, got.IsValid)

	assert.ErrorIs(t, env.svc.Invalidate(ctx, 999), model.ErrTicketNotFound)
}

func TestTicketByBookingVisibility(t *testing.T) {
	env := newTicketEnv(t, model.BookingConfirmed)
	ctx := context.Background()

	tk, err := env.svc.Issue(ctx, env.booking.ID)
	require.NoError(t, err)

	got, err := env.svc.ByBooking(ctx, env.booking.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, got.ID)

	_, err = env.svc.ByBooking(ctx, env.booking.ID, 2, false)
	assert.ErrorIs(t, err, model.ErrBookingNotFound)

	_, err = env.svc.ByBooking(ctx, env.booking.ID, 2, true)
	assert.NoError(t, err)
}

func TestRedemptionCodeScheme(t *testing.T) {
	code, err := NewRedemptionCode("BK-9F3C21AB", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ValidRedemptionCode(code))

	other, err := NewRedemptionCode("BK-9F3C21AB", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NotEqual(t, code, other)

	assert.False(t, ValidRedemptionCode("MOVIE_TICKET:BK-1:abc:dead"))
	assert.False(t, ValidRedemptionCode("CONCERT_TICKET:BK-1:1:dead"))
	assert.False(t, ValidRedemptionCode("MOVIE_TICKET:BK-1:1"))
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "**** **** **** 4242", MaskCard("4242424242424242"))
	assert.Equal(t, "****", MaskCard("42"))
}
