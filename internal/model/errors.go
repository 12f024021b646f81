// Error taxonomy shared by the repository and service layers.
// Sentinel values cover reference lookups; small structs carry the
// identifying detail (which seat, which colliding showtime) that
// callers surface to users.  Handlers translate these into HTTP
// responses with errors.Is / errors.As.
package model

import (
	"errors"
	"fmt"
)

// ErrMovieNotFound indicates the referenced movie does not exist.
var ErrMovieNotFound = errors.New("movie not found")

// ErrShowtimeNotFound indicates the referenced showtime does not exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrBookingNotFound indicates the referenced booking does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPaymentNotFound indicates no payment exists for the reference.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrTicketNotFound indicates no ticket matches the reference or code.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrUnauthorized indicates the actor lacks rights over the entity,
// e.g. cancelling another user's booking.  Handlers must report it
// without leaking the other user's data.
var ErrUnauthorized = errors.New("not allowed to act on this resource")

// ErrTicketInvalid indicates the ticket's validity flag is already false.
var ErrTicketInvalid = errors.New("ticket is no longer valid")

// ErrInvalidCode indicates a redemption code that does not match the
// expected scheme.
var ErrInvalidCode = errors.New("redemption code has an invalid format")

// ErrShowtimeHasBookings blocks hard deletion of a showtime that
// still has seat-holding bookings.
var ErrShowtimeHasBookings = errors.New("showtime still has active bookings")

// ErrStaleTransition is returned by compare-and-set status updates
// when the row is no longer in the expected status.  Callers racing
// on lifecycle transitions treat it as "the other side won".
var ErrStaleTransition = errors.New("booking status changed concurrently")

// ValidationError reports malformed or missing input, such as an
// empty seat list or a non-positive price.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// SeatUnavailableError is returned by the reservation allocator when
// a requested seat is already held.  Seat names the first
// conflicting seat in the request's order.
type SeatUnavailableError struct {
	Seat string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seat %s is not available", e.Seat)
}

// ScheduleConflictError is returned when a showtime's buffered time
// window collides with another showtime on the same screen.
type ScheduleConflictError struct {
	ShowtimeID uint64
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("schedule conflict with showtime %d on the same screen", e.ShowtimeID)
}

// InvalidStateError reports an operation that is not permitted in
// the entity's current lifecycle state, such as paying a CONFIRMED
// booking or issuing a ticket for a booking that is not CONFIRMED.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

// InvalidStatef builds an InvalidStateError from a format string.
func InvalidStatef(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}

// ExternalFailureError wraps a transient failure of an external
// collaborator (payment gateway, broker, storage).
type ExternalFailureError struct {
	Op  string
	Err error
}

func (e *ExternalFailureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalFailureError) Unwrap() error { return e.Err }
