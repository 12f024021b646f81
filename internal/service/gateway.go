package service

import (
	"context"
	"strings"
)

// Verdict is a payment authorization decision.  Reason is set only
// when the instrument was declined.
type Verdict struct {
	Accepted bool
	Reason   string
}

// CardAuthorizer decides whether a payment instrument is accepted.
// It is the pluggable boundary to a payment gateway: the lifecycle
// consumes a Verdict and never cares where it came from.
// Implementations must respect the context deadline; a timed-out or
// failed call resolves to a declined verdict, never a stuck booking.
type CardAuthorizer interface {
	Authorize(ctx context.Context, cardNumber string) (Verdict, error)
}

// SimulatedGateway authorizes deterministically off the card's
// leading digit, standing in for a real gateway:
//
//	3, 4, 5 – accepted (Amex / Visa / Mastercard simulation)
//	1       – declined, invalid card
//	2       – declined, insufficient funds
//	other or malformed – declined, card declined
type SimulatedGateway struct{}

func (SimulatedGateway) Authorize(ctx context.Context, cardNumber string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	cardNumber = strings.TrimSpace(cardNumber)
	if cardNumber == "" {
		return Verdict{Accepted: false, Reason: "Card declined"}, nil
	}
	switch cardNumber[0] {
	case '3', '4', '5':
		return Verdict{Accepted: true}, nil
	case '1':
		return Verdict{Accepted: false, Reason: "Invalid card number"}, nil
	case '2':
		return Verdict{Accepted: false, Reason: "Insufficient funds"}, nil
	default:
		return Verdict{Accepted: false, Reason: "Card declined"}, nil
	}
}
