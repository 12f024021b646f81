// Package service implements the booking engine: seat availability,
// the reservation allocator, the booking lifecycle, schedule
// conflict checking, payment processing and ticket issuance.
// Services depend on narrow store interfaces so the engine can be
// exercised against in-memory fakes; the repository package
// provides the MySQL implementations.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
)

// TxRunner runs fn inside a database transaction.  The transaction
// is carried through the context so one unit of work can span
// several stores sharing the same database handle.  fn returning an
// error rolls the transaction back; no partial state survives.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// MovieStore is the catalog surface the engine needs.
type MovieStore interface {
	ByID(ctx context.Context, id uint64) (*model.Movie, error)
}

// ShowtimeStore persists showtimes.  Overlapping returns showtimes
// on the screen whose raw interval intersects [start, end]
// inclusively, excluding excludeID when non-zero.
type ShowtimeStore interface {
	ByID(ctx context.Context, id uint64) (*model.Showtime, error)
	Create(ctx context.Context, st *model.Showtime) error
	Update(ctx context.Context, st *model.Showtime) error
	SetActive(ctx context.Context, id uint64, active bool) error
	Delete(ctx context.Context, id uint64) error
	Overlapping(ctx context.Context, screen uint32, start, end time.Time, excludeID uint64) ([]model.Showtime, error)
	ListActive(ctx context.Context) ([]model.Showtime, error)
	ListByMovie(ctx context.Context, movieID uint64, after *time.Time) ([]model.Showtime, error)
}

// BookingStore persists bookings and their seat sets.  UpdateStatus
// is a compare-and-set on the status column: it must fail when the
// row is not currently in the `from` status, so a raced transition
// can never be applied twice.
type BookingStore interface {
	ByID(ctx context.Context, id uint64) (*model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
	SeatsHeld(ctx context.Context, showtimeID uint64) ([]string, error)
	PendingCreatedBefore(ctx context.Context, showtimeID uint64, cutoff time.Time) ([]uint64, error)
	DueForExpiry(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error)
	AnyHoldingForShowtime(ctx context.Context, showtimeID uint64) (bool, error)
}

// PaymentStore persists the single payment row per booking.
// Supersede overwrites a prior FAILED attempt in place.
type PaymentStore interface {
	ByID(ctx context.Context, id uint64) (*model.Payment, error)
	ByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error)
	Create(ctx context.Context, p *model.Payment) error
	Supersede(ctx context.Context, p *model.Payment) error
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
}

// TicketStore persists tickets.  InvalidateByBooking is a no-op
// when the booking has no ticket.
type TicketStore interface {
	ByID(ctx context.Context, id uint64) (*model.Ticket, error)
	ByBookingID(ctx context.Context, bookingID uint64) (*model.Ticket, error)
	ByCode(ctx context.Context, code string) (*model.Ticket, error)
	Create(ctx context.Context, t *model.Ticket) error
	SetValid(ctx context.Context, id uint64, valid bool) error
	InvalidateByBooking(ctx context.Context, bookingID uint64) error
}

// EventPublisher delivers domain events to the broker.  Delivery is
// best-effort: failures are logged by implementations and never
// affect committed state.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
	PublishTicketIssueFailed(ctx context.Context, ev queue.TicketIssueFailedEvent) error
}

// NoOpEventPublisher discards events.  Used when no broker is
// configured, e.g. in tests or local development.
type NoOpEventPublisher struct{}

func (NoOpEventPublisher) PublishBookingConfirmed(context.Context, queue.BookingConfirmedEvent) error {
	return nil
}

func (NoOpEventPublisher) PublishTicketIssueFailed(context.Context, queue.TicketIssueFailedEvent) error {
	return nil
}
