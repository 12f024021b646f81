package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// BookingRepo persists bookings and their seat sets.  Seats live in
// the booking_seats table, one row per seat label; occupancy queries
// join through it filtered on seat-holding statuses, so releasing
// seats is nothing more than the status transition itself.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, showtime_id, user_id, total_price_cents, status, reference, created_at, updated_at`

// ByID fetches a booking and its ordered seat labels.
func (r *BookingRepo) ByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	var b model.Booking
	err := conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.ShowtimeID, &b.UserID, &b.TotalPriceCents, &b.Status, &b.Reference, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrBookingNotFound
		}
		return nil, err
	}
	seats, err := r.seatsFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Seats = seats
	return &b, nil
}

func (r *BookingRepo) seatsFor(ctx context.Context, bookingID uint64) ([]string, error) {
	const q = `SELECT seat_label FROM booking_seats WHERE booking_id = ? ORDER BY position`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// Create inserts a booking together with its seat rows in a single
// bulk statement and populates the generated ID.  Must run inside a
// transaction so the booking never exists without its seats.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (showtime_id, user_id, total_price_cents, status, reference) VALUES (?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, b.ShowtimeID, b.UserID, b.TotalPriceCents, b.Status, b.Reference)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	if len(b.Seats) == 0 {
		return nil
	}
	seatQ := `INSERT INTO booking_seats (booking_id, showtime_id, seat_label, position) VALUES `
	args := make([]any, 0, len(b.Seats)*4)
	for i, seat := range b.Seats {
		if i > 0 {
			seatQ += ","
		}
		seatQ += "(?, ?, ?, ?)"
		args = append(args, b.ID, b.ShowtimeID, seat, i)
	}
	_, err = conn(ctx, r.db).ExecContext(ctx, seatQ, args...)
	return err
}

// UpdateStatus performs a compare-and-set on the status column.  It
// returns model.ErrStaleTransition when the row exists but is no
// longer in the expected status, so racing lifecycle transitions
// can never both apply.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ? WHERE id = ? AND status = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
		return model.ErrStaleTransition
	}
	return nil
}

// SeatsHeld returns every seat label currently occupied for the
// showtime, i.e. belonging to a PENDING_PAYMENT or CONFIRMED
// booking.
func (r *BookingRepo) SeatsHeld(ctx context.Context, showtimeID uint64) ([]string, error) {
	const q = `SELECT bs.seat_label
               FROM booking_seats bs
               JOIN bookings b ON b.id = bs.booking_id
               WHERE bs.showtime_id = ? AND b.status IN (?, ?)`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, showtimeID, model.BookingPendingPayment, model.BookingConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// PendingCreatedBefore returns the IDs of this showtime's pending
// bookings created before the cutoff, oldest first.
func (r *BookingRepo) PendingCreatedBefore(ctx context.Context, showtimeID uint64, cutoff time.Time) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE showtime_id = ? AND status = ? AND created_at < ? ORDER BY created_at`
	return r.listIDs(ctx, q, showtimeID, model.BookingPendingPayment, cutoff.UTC())
}

// DueForExpiry returns up to limit pending bookings created before
// the cutoff across all showtimes, oldest first.
func (r *BookingRepo) DueForExpiry(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	const q = `SELECT id FROM bookings WHERE status = ? AND created_at < ? ORDER BY created_at LIMIT ?`
	return r.listIDs(ctx, q, model.BookingPendingPayment, cutoff.UTC(), limit)
}

func (r *BookingRepo) listIDs(ctx context.Context, q string, args ...any) ([]uint64, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByUser returns the user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	return r.listWithSeats(ctx, q, userID)
}

// ListByShowtime returns a showtime's bookings, newest first.
func (r *BookingRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE showtime_id = ? ORDER BY created_at DESC, id DESC`
	return r.listWithSeats(ctx, q, showtimeID)
}

func (r *BookingRepo) listWithSeats(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.ShowtimeID, &b.UserID, &b.TotalPriceCents, &b.Status, &b.Reference, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Seats = []string{}
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	// populate seats for all bookings in one query
	ids := make([]any, 0, len(out))
	seatQ := `SELECT booking_id, seat_label FROM booking_seats WHERE booking_id IN (`
	for i, b := range out {
		if i > 0 {
			seatQ += ","
		}
		seatQ += "?"
		ids = append(ids, b.ID)
	}
	seatQ += `) ORDER BY booking_id, position`
	srows, err := conn(ctx, r.db).QueryContext(ctx, seatQ, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var bid uint64
		var seat string
		if err := srows.Scan(&bid, &seat); err != nil {
			return nil, err
		}
		if idx, ok := index[bid]; ok {
			out[idx].Seats = append(out[idx].Seats, seat)
		}
	}
	return out, srows.Err()
}

// AnyHoldingForShowtime reports whether any booking still holds
// seats for the showtime.
func (r *BookingRepo) AnyHoldingForShowtime(ctx context.Context, showtimeID uint64) (bool, error) {
	const q = `SELECT 1 FROM bookings WHERE showtime_id = ? AND status IN (?, ?) LIMIT 1`
	var one int
	err := conn(ctx, r.db).QueryRowContext(ctx, q, showtimeID, model.BookingPendingPayment, model.BookingConfirmed).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
