package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	confirmed []queue.BookingConfirmedEvent
	failed    []queue.TicketIssueFailedEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.confirmed = append(p.confirmed, ev)
	return nil
}

func (p *recordingPublisher) PublishTicketIssueFailed(_ context.Context, ev queue.TicketIssueFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, ev)
	return nil
}

// failingIssuer simulates a broken ticket pipeline.
type failingIssuer struct{}

func (failingIssuer) Issue(context.Context, uint64) (*model.Ticket, error) {
	return nil, model.ErrTicketNotFound
}

type paymentEnv struct {
	store    *memStore
	clock    *fakeClock
	bookings *BookingService
	payments *PaymentService
	events   *recordingPublisher
	showtime *model.Showtime
}

func newPaymentEnv(t *testing.T, issuer TicketIssuer) *paymentEnv {
	t.Helper()
	store := newMemStore()
	clock := newFakeClock()
	events := &recordingPublisher{}
	movie := store.addMovie("Oppenheimer")
	start := clock.Now().Add(24 * time.Hour)
	st := store.addShowtime(movie.ID, 1, start, start.Add(3*time.Hour), 50, 2000)

	bookingLocks := lock.NewKeyedMutex()
	bookings := NewBookingService(
		store, showtimeStore{store}, bookingStore{store}, ticketStore{store},
		lock.NewKeyedMutex(), bookingLocks,
		WithBookingClock(clock.Now),
	)
	if issuer == nil {
		issuer = NewTicketService(
			store, bookingStore{store}, ticketStore{store}, bookingLocks,
			WithTicketClock(clock.Now),
			WithQREncoder(func(string) (string, error) { return "cXI=", nil }),
		)
	}
	payments := NewPaymentService(
		store, bookingStore{store}, paymentStore{store}, showtimeStore{store}, store,
		SimulatedGateway{}, issuer, events, bookingLocks,
		WithPaymentClock(clock.Now),
	)
	return &paymentEnv{store: store, clock: clock, bookings: bookings, payments: payments, events: events, showtime: st}
}

func (e *paymentEnv) reserve(t *testing.T, userID uint64, seats ...string) *model.Booking {
	t.Helper()
	b, err := e.bookings.Reserve(context.Background(), e.showtime.ID, userID, seats)
	require.NoError(t, err)
	return b
}

func TestProcessPaymentAccepted(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1", "A2")

	res, err := env.payments.Process(ctx, b.ID, 1, "4242424242424242", "Ada Lovelace")
	require.NoError(t, err)

	assert.Equal(t, model.PaymentSuccess, res.Payment.Status)
	assert.Equal(t, uint32(4000), res.Payment.AmountCents)
	assert.Equal(t, "**** **** **** 4242", res.Payment.MaskedCard)
	assert.Contains(t, res.Payment.TransactionRef, "TXN-")
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	require.NotNil(t, res.Ticket)
	assert.True(t, res.Ticket.IsValid)

	got, err := bookingStore{env.store}.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, got.Status)

	require.Len(t, env.events.confirmed, 1)
	ev := env.events.confirmed[0]
	assert.Equal(t, b.ID, ev.BookingID)
	assert.Equal(t, "Oppenheimer", ev.MovieTitle)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
}

func TestProcessPaymentDeclineReasons(t *testing.T) {
	cases := []struct {
		name   string
		card   string
		reason string
	}{
		{"invalid card", "1111222233334444", "Invalid card number"},
		{"insufficient funds", "2222333344445555", "Insufficient funds"},
		{"unknown prefix", "9999888877776666", "Card declined"},
		{"empty card", "", "Card declined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newPaymentEnv(t, nil)
			ctx := context.Background()
			b := env.reserve(t, 1, "A1")

			res, err := env.payments.Process(ctx, b.ID, 1, tc.card, "Ada Lovelace")
			require.NoError(t, err)
			assert.Equal(t, model.PaymentFailed, res.Payment.Status)
			assert.Equal(t, tc.reason, res.Payment.FailureReason)
			assert.Equal(t, model.BookingPendingPayment, res.Booking.Status)
			assert.Empty(t, env.events.confirmed)

			// seats stay held while the booking awaits a retry
			av, err := env.bookings.Availability(ctx, env.showtime.ID)
			require.NoError(t, err)
			assert.Contains(t, av.BookedSeats, "A1")
		})
	}
}

func TestProcessPaymentRetryAfterDecline(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	first, err := env.payments.Process(ctx, b.ID, 1, "2000000000000001", "Ada Lovelace")
	require.NoError(t, err)
	require.Equal(t, model.PaymentFailed, first.Payment.Status)

	second, err := env.payments.Process(ctx, b.ID, 1, "4000000000000002", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, second.Payment.Status)
	assert.Equal(t, model.BookingConfirmed, second.Booking.Status)

	// the retry supersedes the failed row, one payment per booking
	p, err := paymentStore{env.store}.ByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Payment.ID, p.ID)
	assert.Equal(t, model.PaymentSuccess, p.Status)
	assert.Empty(t, p.FailureReason)
	assert.Equal(t, "**** **** **** 0002", p.MaskedCard)
}

func TestProcessPaymentAlreadyPaid(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	_, err := env.payments.Process(ctx, b.ID, 1, "4242424242424242", "Ada Lovelace")
	require.NoError(t, err)

	_, err = env.payments.Process(ctx, b.ID, 1, "4242424242424242", "Ada Lovelace")
	var stateErr *model.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestProcessPaymentExpiredWindow(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	env.clock.Advance(defaultBookingTTL + time.Minute)

	_, err := env.payments.Process(ctx, b.ID, 1, "4242424242424242", "Ada Lovelace")
	var stateErr *model.InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	// the expired hold released its seat without a sweep
	got, err := bookingStore{env.store}.ByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingExpired, got.Status)
	assert.Empty(t, env.events.confirmed)
}

func TestProcessPaymentOwnership(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	_, err := env.payments.Process(ctx, b.ID, 2, "4242424242424242", "Mallory")
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = env.payments.Process(ctx, b.ID, 1, "4242424242424242", "")
	var vErr *model.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = env.payments.Process(ctx, 999, 1, "4242424242424242", "Ada Lovelace")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestProcessPaymentTicketFailureKeepsConfirmation(t *testing.T) {
	env := newPaymentEnv(t, failingIssuer{})
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	res, err := env.payments.Process(ctx, b.ID, 1, "5555444433332222", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	assert.Nil(t, res.Ticket)

	require.Len(t, env.events.failed, 1)
	assert.Equal(t, b.ID, env.events.failed[0].BookingID)
	require.Len(t, env.events.confirmed, 1)
}

func TestProcessPaymentConcurrentAttempts(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()
	b := env.reserve(t, 1, "A1")

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.payments.Process(ctx, b.ID, 1, "4242424242424242", "Ada Lovelace")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	p, err := paymentStore{env.store}.ByBookingID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, p.Status)
}

func TestListPaymentsByStatus(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()

	ok := env.reserve(t, 1, "A1")
	bad := env.reserve(t, 2, "A2")
	_, err := env.payments.Process(ctx, ok.ID, 1, "4242424242424242", "Ada Lovelace")
	require.NoError(t, err)
	_, err = env.payments.Process(ctx, bad.ID, 2, "2000000000000001", "Grace Hopper")
	require.NoError(t, err)

	succeeded, err := env.payments.ListByStatus(ctx, model.PaymentSuccess)
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	assert.Equal(t, ok.ID, succeeded[0].BookingID)

	failed, err := env.payments.ListByStatus(ctx, model.PaymentFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	_, err = env.payments.ListByStatus(ctx, "NOPE")
	var vErr *model.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestConfirmPaymentExternalVerdict(t *testing.T) {
	env := newPaymentEnv(t, nil)
	ctx := context.Background()

	b := env.reserve(t, 1, "D4")
	res, err := env.payments.ConfirmPayment(ctx, b.ID, Verdict{Accepted: true})
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	assert.Equal(t, model.PaymentSuccess, res.Payment.Status)
	assert.Equal(t, "****", res.Payment.MaskedCard)
	require.NotNil(t, res.Ticket)

	declined := env.reserve(t, 2, "D5")
	res, err = env.payments.ConfirmPayment(ctx, declined.ID, Verdict{Accepted: false, Reason: "Card declined"})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentFailed, res.Payment.Status)
	assert.Equal(t, model.BookingPendingPayment, res.Booking.Status)
}
