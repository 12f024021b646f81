package model

import "time"

// Showtime represents a scheduled screening of a movie on a
// particular screen.  StartsAt and EndsAt define the schedule
// (EndsAt must be after StartsAt); TicketPriceCents is the price
// charged per seat at booking time.  Seats are not stored: the
// seat set is derived from TotalSeats by the seatmap package.
//
// Fields:
//
//	ID               – primary key identifier.
//	MovieID          – movie being screened.
//	ScreenNumber     – positive screen identifier within the venue.
//	StartsAt         – when the screening begins (UTC).
//	EndsAt           – when the screening ends (UTC).
//	TotalSeats       – number of seats sold for this screening.
//	TicketPriceCents – price per seat in cents.
//	IsActive         – soft-deactivation flag; inactive showtimes
//	                   reject new reservations.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Showtime struct {
	ID               uint64    // showtimes.id
	MovieID          uint64    // showtimes.movie_id
	ScreenNumber     uint32    // showtimes.screen_number
	StartsAt         time.Time // showtimes.starts_at
	EndsAt           time.Time // showtimes.ends_at
	TotalSeats       uint32    // showtimes.total_seats
	TicketPriceCents uint32    // showtimes.ticket_price_cents
	IsActive         bool      // showtimes.is_active
	CreatedAt        time.Time // showtimes.created_at
	UpdatedAt        time.Time // showtimes.updated_at
}

// DefaultTotalSeats is applied when a showtime is created without
// an explicit seat count.
const DefaultTotalSeats uint32 = 100
