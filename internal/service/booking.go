package service

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/seatmap"
)

const defaultBookingTTL = 15 * time.Minute

// Availability is a point-in-time view of a showtime's seats.  It
// may be stale the instant it is returned; callers must not treat
// it as a reservation.
type Availability struct {
	ShowtimeID  uint64   `json:"showtime_id"`
	TotalSeats  uint32   `json:"total_seats"`
	AllSeats    []string `json:"all_seats"`
	BookedSeats []string `json:"booked_seats"`
	FreeSeats   []string `json:"free_seats"`
}

// BookingService owns seat availability, the reservation allocator
// and the booking lifecycle.  Reservations for one showtime are
// serialized through showtimeLocks so that "recompute occupancy →
// validate seats → create booking" executes as one atomic unit;
// lifecycle transitions on one booking are serialized through
// bookingLocks.  Different showtimes and different bookings never
// block each other.
type BookingService struct {
	tx            TxRunner
	showtimes     ShowtimeStore
	bookings      BookingStore
	tickets       TicketStore
	showtimeLocks *lock.KeyedMutex
	bookingLocks  *lock.KeyedMutex
	ttl           time.Duration
	now           func() time.Time
}

// BookingOption customizes a BookingService.
type BookingOption func(*BookingService)

// WithBookingTTL overrides how long a PENDING_PAYMENT booking holds
// its seats before it becomes eligible for expiry.
func WithBookingTTL(d time.Duration) BookingOption {
	return func(s *BookingService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithBookingClock injects a time source, used by tests.
func WithBookingClock(now func() time.Time) BookingOption {
	return func(s *BookingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBookingService wires the service.  bookingLocks must be the
// same instance handed to PaymentService and TicketService so all
// lifecycle transitions on a booking share one critical section.
func NewBookingService(tx TxRunner, showtimes ShowtimeStore, bookings BookingStore, tickets TicketStore, showtimeLocks, bookingLocks *lock.KeyedMutex, opts ...BookingOption) *BookingService {
	s := &BookingService{
		tx:            tx,
		showtimes:     showtimes,
		bookings:      bookings,
		tickets:       tickets,
		showtimeLocks: showtimeLocks,
		bookingLocks:  bookingLocks,
		ttl:           defaultBookingTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL reports the configured pending-booking time to live.
func (s *BookingService) TTL() time.Duration { return s.ttl }

// Availability returns the seat layout and current occupancy for a
// showtime.  Booked seats are the union of seat sets over bookings
// whose status still holds seats (PENDING_PAYMENT or CONFIRMED);
// free seats are the complement in row-major order.  The read has
// no side effects.
func (s *BookingService) Availability(ctx context.Context, showtimeID uint64) (*Availability, error) {
	var av *Availability
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := s.showtimes.ByID(ctx, showtimeID)
		if err != nil {
			return err
		}
		held, err := s.bookings.SeatsHeld(ctx, showtimeID)
		if err != nil {
			return err
		}
		heldSet := make(map[string]struct{}, len(held))
		for _, seat := range held {
			heldSet[seat] = struct{}{}
		}
		all := seatmap.Generate(int(st.TotalSeats))
		booked := make([]string, 0, len(heldSet))
		free := make([]string, 0, len(all))
		for _, seat := range all {
			if _, ok := heldSet[seat]; ok {
				booked = append(booked, seat)
			} else {
				free = append(free, seat)
			}
		}
		av = &Availability{
			ShowtimeID:  showtimeID,
			TotalSeats:  st.TotalSeats,
			AllSeats:    all,
			BookedSeats: booked,
			FreeSeats:   free,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return av, nil
}

// Reserve atomically claims the requested seats for the user,
// creating a PENDING_PAYMENT booking priced at seat count × the
// showtime's ticket price.  Either every requested seat is held or
// none is: on conflict it fails with SeatUnavailableError naming
// the first conflicting seat and creates nothing.  Bookings whose
// TTL elapsed are expired inside the same critical section before
// occupancy is computed, so abandoned carts cannot starve seats.
func (s *BookingService) Reserve(ctx context.Context, showtimeID, userID uint64, seats []string) (*model.Booking, error) {
	if len(seats) == 0 {
		return nil, model.Validationf("at least one seat must be selected")
	}
	s.showtimeLocks.Lock(showtimeID)
	defer s.showtimeLocks.Unlock(showtimeID)

	var created *model.Booking
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := s.showtimes.ByID(ctx, showtimeID)
		if err != nil {
			return err
		}
		if !st.IsActive {
			return model.InvalidStatef("showtime %d is not open for booking", showtimeID)
		}
		if err := seatmap.Validate(int(st.TotalSeats), seats); err != nil {
			return &model.ValidationError{Msg: err.Error()}
		}
		if err := s.expirePendingLocked(ctx, showtimeID); err != nil {
			return err
		}
		held, err := s.bookings.SeatsHeld(ctx, showtimeID)
		if err != nil {
			return err
		}
		heldSet := make(map[string]struct{}, len(held))
		for _, seat := range held {
			heldSet[seat] = struct{}{}
		}
		for _, seat := range seats {
			if _, taken := heldSet[seat]; taken {
				return &model.SeatUnavailableError{Seat: seat}
			}
		}
		now := s.now()
		b := &model.Booking{
			ShowtimeID:      showtimeID,
			UserID:          userID,
			Seats:           append([]string(nil), seats...),
			TotalPriceCents: uint32(len(seats)) * st.TicketPriceCents,
			Status:          model.BookingPendingPayment,
			Reference:       NewBookingReference(),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// expirePendingLocked transitions this showtime's overdue pending
// bookings to EXPIRED.  Caller holds the showtime lock and an open
// transaction.  A booking confirmed concurrently under its own
// lifecycle lock wins the compare-and-set and is skipped.
func (s *BookingService) expirePendingLocked(ctx context.Context, showtimeID uint64) error {
	cutoff := s.now().Add(-s.ttl)
	due, err := s.bookings.PendingCreatedBefore(ctx, showtimeID, cutoff)
	if err != nil {
		return err
	}
	for _, id := range due {
		err := s.bookings.UpdateStatus(ctx, id, model.BookingPendingPayment, model.BookingExpired)
		if err != nil && !errors.Is(err, model.ErrStaleTransition) {
			return err
		}
	}
	return nil
}

// Cancel lets the owning user cancel their own booking while it is
// still awaiting payment.  The status transition releases the seats
// in the same atomic unit: occupancy is derived from status, so
// there is no window where the two disagree.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID uint64) error {
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
		if b.Status != model.BookingPendingPayment {
			return model.InvalidStatef("only bookings awaiting payment can be cancelled")
		}
		return s.bookings.UpdateStatus(ctx, bookingID, model.BookingPendingPayment, model.BookingCancelled)
	})
}

// AdminCancel force-cancels a booking regardless of owner.  It is
// the only path out of CONFIRMED; any issued ticket is invalidated
// in the same transaction.  Bookings already CANCELLED or EXPIRED
// are rejected.
func (s *BookingService) AdminCancel(ctx context.Context, bookingID uint64) error {
	s.bookingLocks.Lock(bookingID)
	defer s.bookingLocks.Unlock(bookingID)

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingCancelled, model.BookingExpired:
			return model.InvalidStatef("booking is already %s", b.Status)
		}
		if err := s.bookings.UpdateStatus(ctx, bookingID, b.Status, model.BookingCancelled); err != nil {
			return err
		}
		return s.tickets.InvalidateByBooking(ctx, bookingID)
	})
}

// ExpireDue sweeps bookings whose payment window elapsed, moving
// them to EXPIRED one by one under their lifecycle lock.  It
// returns how many bookings were expired.  Driven periodically by
// the expiry worker.
func (s *BookingService) ExpireDue(ctx context.Context, limit int) (int, error) {
	cutoff := s.now().Add(-s.ttl)
	due, err := s.bookings.DueForExpiry(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, id := range due {
		s.bookingLocks.Lock(id)
		err := s.tx.WithTx(ctx, func(ctx context.Context) error {
			return s.bookings.UpdateStatus(ctx, id, model.BookingPendingPayment, model.BookingExpired)
		})
		s.bookingLocks.Unlock(id)
		if err != nil {
			if errors.Is(err, model.ErrStaleTransition) {
				continue // paid or cancelled since the sweep query
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// ByIDForUser returns a booking visible to the caller: owners see
// their own bookings, admins see all.  Non-owners get NotFound
// rather than a hint that the booking exists.
func (s *BookingService) ByIDForUser(ctx context.Context, bookingID, userID uint64, admin bool) (*model.Booking, error) {
	b, err := s.bookings.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !admin && b.UserID != userID {
		return nil, model.ErrBookingNotFound
	}
	return b, nil
}

// ListForUser returns all bookings created by the user.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

// ListForShowtime returns all bookings of a showtime (admin view).
func (s *BookingService) ListForShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error) {
	return s.bookings.ListByShowtime(ctx, showtimeID)
}
