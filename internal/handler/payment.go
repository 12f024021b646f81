package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// PaymentHandler exposes payment processing for booking owners and
// payment queries for owners and admins.
type PaymentHandler struct {
	Payments *service.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	if payments == nil {
		panic("nil service passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments}
}

type payReq struct {
	CardNumber     string `json:"card_number"`
	CardHolderName string `json:"card_holder_name"`
}

type paymentResp struct {
	ID             uint64    `json:"id"`
	BookingID      uint64    `json:"booking_id"`
	AmountCents    uint32    `json:"amount_cents"`
	Status         string    `json:"status"`
	MaskedCard     string    `json:"masked_card"`
	CardHolderName string    `json:"card_holder_name"`
	TransactionRef string    `json:"transaction_ref"`
	ProcessedAt    time.Time `json:"processed_at"`
	FailureReason  string    `json:"failure_reason,omitempty"`
}

func toPaymentResp(p *model.Payment) paymentResp {
	return paymentResp{
		ID:             p.ID,
		BookingID:      p.BookingID,
		AmountCents:    p.AmountCents,
		Status:         string(p.Status),
		MaskedCard:     p.MaskedCard,
		CardHolderName: p.CardHolderName,
		TransactionRef: p.TransactionRef,
		ProcessedAt:    p.ProcessedAt,
		FailureReason:  p.FailureReason,
	}
}

// Pay handles POST /v1/bookings/:id/payment.  An accepted card
// confirms the booking and returns the issued ticket inline; a
// declined card returns 402 with the failure reason and leaves the
// booking open for a retry.
func (h *PaymentHandler) Pay(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Payments.Process(c.Request().Context(), bookingID, userID, req.CardNumber, req.CardHolderName)
	if err != nil {
		return writeError(c, err)
	}
	if res.Payment.Status == model.PaymentFailed {
		return c.JSON(http.StatusPaymentRequired, echo.Map{
			"payment": toPaymentResp(res.Payment),
			"error":   res.Payment.FailureReason,
		})
	}
	body := echo.Map{
		"payment":        toPaymentResp(res.Payment),
		"booking_status": res.Booking.Status,
	}
	if res.Ticket != nil {
		body["ticket"] = toTicketResp(res.Ticket)
	}
	return c.JSON(http.StatusOK, body)
}

// GetForBooking handles GET /v1/bookings/:id/payment.
func (h *PaymentHandler) GetForBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	p, err := h.Payments.ByBooking(c.Request().Context(), bookingID, userID, isAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPaymentResp(p))
}

// ListByStatus handles GET /v1/admin/payments?status=FAILED.
func (h *PaymentHandler) ListByStatus(c echo.Context) error {
	status := model.PaymentStatus(c.QueryParam("status"))
	payments, err := h.Payments.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]paymentResp, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResp(&payments[i]))
	}
	return c.JSON(http.StatusOK, out)
}
