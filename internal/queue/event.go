// Package queue defines message payloads exchanged over the message
// broker, the publisher, and the background consumer.
package queue

// BookingConfirmedEvent is published when a booking transitions to
// CONFIRMED after a successful payment.  It contains enough
// information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID       uint64   `json:"booking_id"`
	BookingRef      string   `json:"booking_ref"`
	UserID          uint64   `json:"user_id"`
	ShowtimeID      uint64   `json:"showtime_id"`
	MovieTitle      string   `json:"movie_title"`
	ScreenNumber    uint32   `json:"screen_number"`
	StartsAt        string   `json:"starts_at"`
	Seats           []string `json:"seats"`
	TotalPriceCents uint32   `json:"total_price_cents"`
	TransactionRef  string   `json:"transaction_ref"`
	ConfirmedAt     string   `json:"confirmed_at"`
}

// TicketIssueFailedEvent is the operator channel for best-effort
// ticket issuance: when a confirmed booking's ticket cannot be
// generated, the confirmation stands and this event surfaces the
// failure so an operator can re-issue.
type TicketIssueFailedEvent struct {
	BookingID  uint64 `json:"booking_id"`
	BookingRef string `json:"booking_ref"`
	Reason     string `json:"reason"`
	FailedAt   string `json:"failed_at"`
}
