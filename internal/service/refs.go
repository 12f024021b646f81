package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const redemptionPrefix = "MOVIE_TICKET"

// NewBookingReference returns a unique, human-presentable booking
// reference such as "BK-9F3C21AB".
func NewBookingReference() string {
	return "BK-" + shortID()
}

// NewTransactionReference returns a payment transaction reference
// such as "TXN-4B0D77E1".
func NewTransactionReference() string {
	return "TXN-" + shortID()
}

func shortID() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}

// NewRedemptionCode builds a ticket redemption code bound to the
// booking reference and issuance time, with random bytes appended so
// codes are unguessable and never reused:
// MOVIE_TICKET:<bookingRef>:<unixMilli>:<hex nonce>.
func NewRedemptionCode(bookingRef string, issuedAt time.Time) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d:%s", redemptionPrefix, bookingRef, issuedAt.UnixMilli(), hex.EncodeToString(nonce)), nil
}

// ValidRedemptionCode reports whether a code matches the expected
// scheme.  It does not check whether the code exists.
func ValidRedemptionCode(code string) bool {
	parts := strings.Split(code, ":")
	if len(parts) != 4 || parts[0] != redemptionPrefix {
		return false
	}
	if parts[1] == "" || parts[3] == "" {
		return false
	}
	if _, err := strconv.ParseInt(parts[2], 10, 64); err != nil {
		return false
	}
	if _, err := hex.DecodeString(parts[3]); err != nil {
		return false
	}
	return true
}

// MaskCard retains only the last four digits of a payment
// instrument, e.g. "**** **** **** 4242".
func MaskCard(cardNumber string) string {
	if len(cardNumber) < 4 {
		return "****"
	}
	return "**** **** **** " + cardNumber[len(cardNumber)-4:]
}
