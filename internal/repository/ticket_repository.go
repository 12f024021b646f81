package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// TicketRepo persists issued tickets.  booking_id and code both
// carry unique indexes: one ticket per booking, one booking per
// code.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, booking_id, code, qr_code_base64, issued_at, is_valid, created_at`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(&t.ID, &t.BookingID, &t.Code, &t.QRCodeBase64, &t.IssuedAt, &t.IsValid, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ByID fetches a single ticket.
func (r *TicketRepo) ByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	return scanTicket(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// ByBookingID fetches the ticket issued for a booking.
func (r *TicketRepo) ByBookingID(ctx context.Context, bookingID uint64) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE booking_id = ?`
	return scanTicket(conn(ctx, r.db).QueryRowContext(ctx, q, bookingID))
}

// ByCode fetches the ticket carrying the redemption code.
func (r *TicketRepo) ByCode(ctx context.Context, code string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE code = ?`
	return scanTicket(conn(ctx, r.db).QueryRowContext(ctx, q, code))
}

// Create inserts a ticket and populates its generated ID.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (booking_id, code, qr_code_base64, issued_at, is_valid) VALUES (?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, t.BookingID, t.Code, t.QRCodeBase64, t.IssuedAt.UTC(), t.IsValid)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// SetValid flips the redemption validity flag.
func (r *TicketRepo) SetValid(ctx context.Context, id uint64, valid bool) error {
	const q = `UPDATE tickets SET is_valid = ? WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, valid, id)
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
	}
	return nil
}

// InvalidateByBooking invalidates the booking's ticket if one was
// issued.  A booking without a ticket is a no-op, not an error.
func (r *TicketRepo) InvalidateByBooking(ctx context.Context, bookingID uint64) error {
	const q = `UPDATE tickets SET is_valid = 0 WHERE booking_id = ?`
	_, err := conn(ctx, r.db).ExecContext(ctx, q, bookingID)
	return err
}
