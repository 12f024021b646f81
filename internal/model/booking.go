package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.
// PENDING_PAYMENT is the only non-terminal state; CONFIRMED can be
// left solely through the administrative cancel path.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCancelled      BookingStatus = "CANCELLED"
	BookingExpired        BookingStatus = "EXPIRED"
)

// HoldsSeats reports whether a booking in this status still occupies
// its seats.  Both PENDING_PAYMENT and CONFIRMED hold seats: an
// unpaid booking blocks re-selling until it is paid, cancelled or
// expired.
func (s BookingStatus) HoldsSeats() bool {
	return s == BookingPendingPayment || s == BookingConfirmed
}

// Terminal reports whether the status admits no further ordinary
// transitions.  CONFIRMED counts as terminal; only the admin
// override moves a confirmed booking to CANCELLED.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingCancelled || s == BookingExpired
}

// Booking records a user's claim on a set of seats for a showtime.
// The seat labels are the unit of concurrency control: among all
// bookings of one showtime whose status holds seats, the seat sets
// are pairwise disjoint.  TotalPriceCents is fixed at creation
// (seat count × ticket price) and never changes afterwards.
//
// Fields:
//
//	ID              – primary key identifier.
//	ShowtimeID      – showtime being booked.
//	UserID          – user who made the booking.
//	Seats           – seat labels claimed, in row-major request order.
//	TotalPriceCents – total price in cents, immutable once set.
//	Status          – lifecycle state (see BookingStatus).
//	Reference       – unique human-presentable booking reference.
//	CreatedAt       – creation timestamp; expiry is measured from it.
//	UpdatedAt       – last update timestamp.
type Booking struct {
	ID              uint64        // bookings.id
	ShowtimeID      uint64        // bookings.showtime_id
	UserID          uint64        // bookings.user_id
	Seats           []string      // booking_seats rows, ordered
	TotalPriceCents uint32        // bookings.total_price_cents
	Status          BookingStatus // bookings.status
	Reference       string        // bookings.reference
	CreatedAt       time.Time     // bookings.created_at
	UpdatedAt       time.Time     // bookings.updated_at
}
