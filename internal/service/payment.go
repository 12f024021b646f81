package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
)

// defaultAuthTimeout bounds a single gateway authorization call.
const defaultAuthTimeout = 10 * time.Second

// TicketIssuer issues the ticket for a confirmed booking.  Satisfied
// by TicketService; mocked in tests.
type TicketIssuer interface {
	Issue(ctx context.Context, bookingID uint64) (*model.Ticket, error)
}

// PaymentResult is the full outcome of a payment attempt: the
// recorded payment, the booking after any transition, and the
// ticket when issuance succeeded inline.
type PaymentResult struct {
	Payment *model.Payment
	Booking *model.Booking
	Ticket  *model.Ticket
}

// PaymentService drives the paid half of the booking lifecycle.  A
// successful authorization confirms the booking and a declined one
// records a retryable FAILED payment; in both cases the verdict and
// the booking transition are committed atomically.  Ticket issuance
// and event publication run after commit and are best-effort: the
// confirmation stands even if they fail.
type PaymentService struct {
	tx           TxRunner
	bookings     BookingStore
	payments     PaymentStore
	showtimes    ShowtimeStore
	movies       MovieStore
	gateway      CardAuthorizer
	ticketIssuer TicketIssuer
	events       EventPublisher
	bookingLocks *lock.KeyedMutex
	ttl          time.Duration
	authTimeout  time.Duration
	now          func() time.Time
}

// PaymentOption customizes a PaymentService.
type PaymentOption func(*PaymentService)

// WithPaymentTTL aligns the payment window with the booking TTL so
// the lazy expiry check at pay time agrees with the sweeper.
func WithPaymentTTL(d time.Duration) PaymentOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithAuthTimeout overrides the per-call gateway deadline.
func WithAuthTimeout(d time.Duration) PaymentOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.authTimeout = d
		}
	}
}

// WithPaymentClock injects a time source, used by tests.
func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(s *PaymentService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewPaymentService wires the service.  bookingLocks must be the
// same instance used by BookingService so payment and cancellation
// of one booking never interleave.
func NewPaymentService(tx TxRunner, bookings BookingStore, payments PaymentStore, showtimes ShowtimeStore, movies MovieStore, gateway CardAuthorizer, ticketIssuer TicketIssuer, events EventPublisher, bookingLocks *lock.KeyedMutex, opts ...PaymentOption) *PaymentService {
	s := &PaymentService{
		tx:           tx,
		bookings:     bookings,
		payments:     payments,
		showtimes:    showtimes,
		movies:       movies,
		gateway:      gateway,
		ticketIssuer: ticketIssuer,
		events:       events,
		bookingLocks: bookingLocks,
		ttl:          defaultBookingTTL,
		authTimeout:  defaultAuthTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process charges the booking's full amount against the supplied
// card.  The flow has three phases: a guarded pre-check that the
// booking is still payable, the gateway authorization outside any
// lock, and the guarded recording of the verdict.  An accepted
// verdict moves the booking to CONFIRMED; a declined one records a
// FAILED payment that a retry supersedes.  A gateway error counts
// as a decline rather than leaving the booking in limbo.
func (s *PaymentService) Process(ctx context.Context, bookingID, userID uint64, cardNumber, cardHolder string) (*PaymentResult, error) {
	if cardHolder == "" {
		return nil, model.Validationf("card holder name is required")
	}
	if err := s.precheck(ctx, bookingID, userID); err != nil {
		return nil, err
	}

	authCtx, cancel := context.WithTimeout(ctx, s.authTimeout)
	verdict, err := s.gateway.Authorize(authCtx, cardNumber)
	cancel()
	if err != nil {
		log.Printf("payment: gateway authorization failed for booking %d: %v", bookingID, err)
		verdict = Verdict{Accepted: false, Reason: "Card declined"}
	}

	result, err := s.record(ctx, bookingID, userID, cardNumber, cardHolder, verdict)
	if err != nil {
		return nil, err
	}
	if result.Booking.Status == model.BookingConfirmed {
		s.afterConfirm(ctx, result)
	}
	return result, nil
}

// ConfirmPayment records a verdict obtained outside the built-in
// authorizer, e.g. from a real gateway's callback.  The lifecycle
// handling is identical to Process: an accepted verdict confirms
// the booking, a declined one records a retryable FAILED payment.
func (s *PaymentService) ConfirmPayment(ctx context.Context, bookingID uint64, verdict Verdict) (*PaymentResult, error) {
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	result, err := s.record(ctx, bookingID, b.UserID, "", "", verdict)
	if err != nil {
		return nil, err
	}
	if result.Booking.Status == model.BookingConfirmed {
		s.afterConfirm(ctx, result)
	}
	return result, nil
}

// precheck verifies the booking is payable before the card is
// charged.  A booking whose payment window elapsed is expired here
// rather than charged.
func (s *PaymentService) precheck(ctx context.Context, bookingID, userID uint64) error {
	s.bookingLocks.Lock(bookingID)
	defer s.bookingLocks.Unlock(bookingID)

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return model.ErrUnauthorized
		}
		return s.ensurePayable(ctx, b)
	})
}

// ensurePayable rejects bookings that are not in PENDING_PAYMENT
// and lazily expires ones whose window has passed.
func (s *PaymentService) ensurePayable(ctx context.Context, b *model.Booking) error {
	switch b.Status {
	case model.BookingConfirmed:
		return model.InvalidStatef("booking is already paid")
	case model.BookingCancelled, model.BookingExpired:
		return model.InvalidStatef("booking is %s and can no longer be paid", b.Status)
	}
	if s.now().Sub(b.CreatedAt) > s.ttl {
		err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingPendingPayment, model.BookingExpired)
		if err != nil && !errors.Is(err, model.ErrStaleTransition) {
			return err
		}
		return model.InvalidStatef("payment window has expired")
	}
	p, err := s.payments.ByBookingID(ctx, b.ID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil
		}
		return err
	}
	if p.Status == model.PaymentSuccess {
		return model.InvalidStatef("booking already has a successful payment")
	}
	return nil
}

// record persists the verdict and, on success, confirms the booking
// in the same transaction.  The booking state is re-verified under
// the lock since authorization ran unguarded.
func (s *PaymentService) record(ctx context.Context, bookingID, userID uint64, cardNumber, cardHolder string, verdict Verdict) (*PaymentResult, error) {
	s.bookingLocks.Lock(bookingID)
	defer s.bookingLocks.Unlock(bookingID)

	var result PaymentResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.UserID != userID {
			return model.ErrUnauthorized
		}
		if err := s.ensurePayable(ctx, b); err != nil {
			return err
		}

		now := s.now()
		p := &model.Payment{
			BookingID:      bookingID,
			AmountCents:    b.TotalPriceCents,
			MaskedCard:     MaskCard(cardNumber),
			CardHolderName: cardHolder,
			TransactionRef: NewTransactionReference(),
			ProcessedAt:    now,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if verdict.Accepted {
			p.Status = model.PaymentSuccess
		} else {
			p.Status = model.PaymentFailed
			p.FailureReason = verdict.Reason
		}

		prior, err := s.payments.ByBookingID(ctx, bookingID)
		switch {
		case err == nil:
			p.ID = prior.ID
			p.CreatedAt = prior.CreatedAt
			if err := s.payments.Supersede(ctx, p); err != nil {
				return err
			}
		case errors.Is(err, model.ErrPaymentNotFound):
			if err := s.payments.Create(ctx, p); err != nil {
				return err
			}
		default:
			return err
		}

		if verdict.Accepted {
			if err := s.bookings.UpdateStatus(ctx, bookingID, model.BookingPendingPayment, model.BookingConfirmed); err != nil {
				return err
			}
			b.Status = model.BookingConfirmed
		}
		result.Payment = p
		result.Booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// afterConfirm runs the best-effort side of a confirmation: issue
// the ticket and publish the confirmation event.  Failures are
// logged and routed to the operator queue; they never unwind the
// committed confirmation.
func (s *PaymentService) afterConfirm(ctx context.Context, result *PaymentResult) {
	b := result.Booking
	t, err := s.ticketIssuer.Issue(ctx, b.ID)
	if err != nil {
		log.Printf("payment: ticket issuance failed for booking %d: %v", b.ID, err)
		failEv := queue.TicketIssueFailedEvent{
			BookingID:  b.ID,
			BookingRef: b.Reference,
			Reason:     err.Error(),
			FailedAt:   s.now().Format(time.RFC3339),
		}
		if perr := s.events.PublishTicketIssueFailed(ctx, failEv); perr != nil {
			log.Printf("payment: could not publish ticket failure for booking %d: %v", b.ID, perr)
		}
	} else {
		result.Ticket = t
	}

	ev := queue.BookingConfirmedEvent{
		BookingID:       b.ID,
		BookingRef:      b.Reference,
		UserID:          b.UserID,
		ShowtimeID:      b.ShowtimeID,
		Seats:           b.Seats,
		TotalPriceCents: b.TotalPriceCents,
		TransactionRef:  result.Payment.TransactionRef,
		ConfirmedAt:     s.now().Format(time.RFC3339),
	}
	if st, err := s.showtimes.ByID(ctx, b.ShowtimeID); err == nil {
		ev.ScreenNumber = st.ScreenNumber
		ev.StartsAt = st.StartsAt.Format(time.RFC3339)
		if m, err := s.movies.ByID(ctx, st.MovieID); err == nil {
			ev.MovieTitle = m.Title
		}
	}
	if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
		log.Printf("payment: could not publish confirmation for booking %d: %v", b.ID, err)
	}
}

// ByBooking returns the payment recorded for a booking, visible to
// the booking's owner and to admins.
func (s *PaymentService) ByBooking(ctx context.Context, bookingID, userID uint64, admin bool) (*model.Payment, error) {
	var p *model.Payment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !admin && b.UserID != userID {
			return model.ErrBookingNotFound
		}
		p, err = s.payments.ByBookingID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByStatus returns payments in the given state (admin view).
func (s *PaymentService) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	switch status {
	case model.PaymentPending, model.PaymentSuccess, model.PaymentFailed, model.PaymentRefunded:
		return s.payments.ListByStatus(ctx, status)
	default:
		return nil, model.Validationf("unknown payment status %q", status)
	}
}
