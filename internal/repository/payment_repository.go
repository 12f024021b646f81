package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// PaymentRepo persists payment attempts.  booking_id carries a
// unique index so at most one payment row exists per booking;
// retries after a decline overwrite that row via Supersede.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, booking_id, amount_cents, status, masked_card, card_holder_name, transaction_ref, processed_at, failure_reason, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	var reason sql.NullString
	err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Status, &p.MaskedCard,
		&p.CardHolderName, &p.TransactionRef, &p.ProcessedAt, &reason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, err
	}
	p.FailureReason = reason.String
	return &p, nil
}

// ByID fetches a single payment.
func (r *PaymentRepo) ByID(ctx context.Context, id uint64) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	return scanPayment(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// ByBookingID fetches the payment recorded for a booking.
func (r *PaymentRepo) ByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ?`
	return scanPayment(conn(ctx, r.db).QueryRowContext(ctx, q, bookingID))
}

// Create inserts a payment row and populates its generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, amount_cents, status, masked_card, card_holder_name, transaction_ref, processed_at, failure_reason)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		p.BookingID, p.AmountCents, p.Status, p.MaskedCard, p.CardHolderName,
		p.TransactionRef, p.ProcessedAt.UTC(), nullable(p.FailureReason))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Supersede overwrites a prior attempt's verdict fields in place,
// keeping the row's identity and creation time.
func (r *PaymentRepo) Supersede(ctx context.Context, p *model.Payment) error {
	const q = `UPDATE payments
               SET amount_cents = ?, status = ?, masked_card = ?, card_holder_name = ?, transaction_ref = ?, processed_at = ?, failure_reason = ?
               WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		p.AmountCents, p.Status, p.MaskedCard, p.CardHolderName,
		p.TransactionRef, p.ProcessedAt.UTC(), nullable(p.FailureReason), p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.ByID(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListByStatus returns payments in the given state, newest first.
func (r *PaymentRepo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE status = ? ORDER BY processed_at DESC, id DESC`
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		var p model.Payment
		var reason sql.NullString
		if err := rows.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Status, &p.MaskedCard,
			&p.CardHolderName, &p.TransactionRef, &p.ProcessedAt, &reason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.FailureReason = reason.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
