package model

import "time"

// PaymentStatus enumerates the states of a payment attempt.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Payment records a payment attempt against a booking.  At most one
// payment row exists per booking; a FAILED attempt is superseded in
// place when the user retries, while a SUCCESS row blocks any
// further attempts.  Only the last four digits of the instrument
// are retained.
//
// Fields:
//
//	ID             – primary key identifier.
//	BookingID      – booking being paid (unique per booking).
//	AmountCents    – charged amount; always equals the booking total.
//	Status         – payment state (see PaymentStatus).
//	MaskedCard     – masked instrument, e.g. "**** **** **** 4242".
//	CardHolderName – name supplied with the instrument.
//	TransactionRef – external-facing transaction reference.
//	ProcessedAt    – when the verdict was recorded.
//	FailureReason  – set iff Status is FAILED.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Payment struct {
	ID             uint64        // payments.id
	BookingID      uint64        // payments.booking_id
	AmountCents    uint32        // payments.amount_cents
	Status         PaymentStatus // payments.status
	MaskedCard     string        // payments.masked_card
	CardHolderName string        // payments.card_holder_name
	TransactionRef string        // payments.transaction_ref
	ProcessedAt    time.Time     // payments.processed_at
	FailureReason  string        // payments.failure_reason (empty unless FAILED)
	CreatedAt      time.Time     // payments.created_at
	UpdatedAt      time.Time     // payments.updated_at
}
