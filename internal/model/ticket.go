package model

import "time"

// Ticket is the redemption credential issued once a booking is
// confirmed.  Each booking has at most one ticket; issuance is
// idempotent.  The redemption code is opaque and unguessable,
// derived from the booking reference plus issuance time and random
// bytes.  IsValid starts true and flips to false on explicit
// invalidation or when the booking leaves CONFIRMED via the admin
// override.
//
// Fields:
//
//	ID           – primary key identifier.
//	BookingID    – confirmed booking this ticket belongs to.
//	Code         – redemption code presented at the door.
//	QRCodeBase64 – base64-encoded PNG of the code, for display.
//	IssuedAt     – when the ticket was generated.
//	IsValid      – redemption validity flag.
//	CreatedAt    – creation timestamp.
type Ticket struct {
	ID           uint64    // tickets.id
	BookingID    uint64    // tickets.booking_id
	Code         string    // tickets.code
	QRCodeBase64 string    // tickets.qr_code_base64
	IssuedAt     time.Time // tickets.issued_at
	IsValid      bool      // tickets.is_valid
	CreatedAt    time.Time // tickets.created_at
}
