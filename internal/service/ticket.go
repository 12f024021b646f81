package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log"
	"time"

	"github.com/yeqown/go-qrcode"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// QREncoder renders a redemption code into a base64 PNG for the
// ticket payload.  Pluggable so tests can skip image generation.
type QREncoder func(code string) (string, error)

// EncodeQR is the default QREncoder.
func EncodeQR(code string) (string, error) {
	qrc, err := qrcode.New(code)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// TicketService issues and redeems tickets.  Issuance is gated on
// the booking being CONFIRMED and is idempotent: a second call for
// the same booking returns the existing ticket unchanged.  All
// writes share the booking lifecycle locks so issuance never races
// an admin cancellation.
type TicketService struct {
	tx           TxRunner
	bookings     BookingStore
	tickets      TicketStore
	bookingLocks *lock.KeyedMutex
	encode       QREncoder
	now          func() time.Time
}

// TicketOption customizes a TicketService.
type TicketOption func(*TicketService)

// WithQREncoder replaces the QR renderer, used by tests.
func WithQREncoder(enc QREncoder) TicketOption {
	return func(s *TicketService) {
		if enc != nil {
			s.encode = enc
		}
	}
}

// WithTicketClock injects a time source, used by tests.
func WithTicketClock(now func() time.Time) TicketOption {
	return func(s *TicketService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTicketService wires the service.  bookingLocks must be the
// instance shared with BookingService and PaymentService.
func NewTicketService(tx TxRunner, bookings BookingStore, tickets TicketStore, bookingLocks *lock.KeyedMutex, opts ...TicketOption) *TicketService {
	s := &TicketService{
		tx:           tx,
		bookings:     bookings,
		tickets:      tickets,
		bookingLocks: bookingLocks,
		encode:       EncodeQR,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates the ticket for a confirmed booking, or returns the
// existing one.  The redemption code embeds the booking reference,
// issuance time and a random nonce; a QR rendering failure degrades
// to a ticket without an image rather than no ticket.
func (s *TicketService) Issue(ctx context.Context, bookingID uint64) (*model.Ticket, error) {
	s.bookingLocks.Lock(bookingID)
	defer s.bookingLocks.Unlock(bookingID)

	var issued *model.Ticket
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.tickets.ByBookingID(ctx, bookingID)
		if err == nil {
			issued = existing
			return nil
		}
		if !errors.Is(err, model.ErrTicketNotFound) {
			return err
		}
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingConfirmed {
			return model.InvalidStatef("tickets are only issued for confirmed bookings")
		}
		now := s.now()
		code, err := NewRedemptionCode(b.Reference, now)
		if err != nil {
			return err
		}
		qr, err := s.encode(code)
		if err != nil {
			log.Printf("ticket: QR rendering failed for booking %d: %v", bookingID, err)
			qr = ""
		}
		t := &model.Ticket{
			BookingID:    bookingID,
			Code:         code,
			QRCodeBase64: qr,
			IssuedAt:     now,
			IsValid:      true,
			CreatedAt:    now,
		}
		if err := s.tickets.Create(ctx, t); err != nil {
			return err
		}
		issued = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Validate checks a redemption code at the door.  It reports the
// ticket when the code exists and is still valid; redeeming does
// not consume the ticket, invalidation is a separate explicit step.
func (s *TicketService) Validate(ctx context.Context, code string) (*model.Ticket, error) {
	if !ValidRedemptionCode(code) {
		return nil, model.ErrInvalidCode
	}
	t, err := s.tickets.ByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !t.IsValid {
		return nil, model.ErrTicketInvalid
	}
	// the booking behind the ticket must still be live
	b, err := s.bookings.ByID(ctx, t.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingConfirmed {
		return nil, model.ErrTicketInvalid
	}
	return t, nil
}

// Invalidate marks a ticket unusable, e.g. after redemption at the
// door.  Idempotent: invalidating an already invalid ticket is a
// no-op, so a retried or double scan settles in the same state.
func (s *TicketService) Invalidate(ctx context.Context, ticketID uint64) error {
	t, err := s.tickets.ByID(ctx, ticketID)
	if err != nil {
		return err
	}
	s.bookingLocks.Lock(t.BookingID)
	defer s.bookingLocks.Unlock(t.BookingID)

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.ByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if !t.IsValid {
			return nil
		}
		return s.tickets.SetValid(ctx, t.ID, false)
	})
}

// ByBooking returns the ticket for a booking, visible to the owner
// and to admins.
func (s *TicketService) ByBooking(ctx context.Context, bookingID, userID uint64, admin bool) (*model.Ticket, error) {
	var t *model.Ticket
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !admin && b.UserID != userID {
			return model.ErrBookingNotFound
		}
		t, err = s.tickets.ByBookingID(ctx, bookingID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}
