package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// TicketHandler exposes ticket retrieval for booking owners and the
// door-side validate/redeem endpoints for admins.
type TicketHandler struct {
	Tickets *service.TicketService
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(tickets *service.TicketService) *TicketHandler {
	if tickets == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets}
}

type ticketResp struct {
	ID           uint64    `json:"id"`
	BookingID    uint64    `json:"booking_id"`
	Code         string    `json:"code"`
	QRCodeBase64 string    `json:"qr_code_base64,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	IsValid      bool      `json:"is_valid"`
}

func toTicketResp(t *model.Ticket) ticketResp {
	return ticketResp{
		ID:           t.ID,
		BookingID:    t.BookingID,
		Code:         t.Code,
		QRCodeBase64: t.QRCodeBase64,
		IssuedAt:     t.IssuedAt,
		IsValid:      t.IsValid,
	}
}

// GetForBooking handles GET /v1/bookings/:id/ticket.
func (h *TicketHandler) GetForBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t, err := h.Tickets.ByBooking(c.Request().Context(), bookingID, userID, isAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(t))
}

// Issue handles POST /v1/admin/bookings/:id/ticket.  Re-issues the
// ticket for a confirmed booking whose inline issuance failed;
// idempotent when the ticket already exists.
func (h *TicketHandler) Issue(c echo.Context) error {
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	t, err := h.Tickets.Issue(c.Request().Context(), bookingID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTicketResp(t))
}

// Validate handles POST /v1/admin/tickets/validate with body
// {"code": "..."}.  It reports the ticket when the code is genuine
// and still valid; it does not consume the ticket.
func (h *TicketHandler) Validate(c echo.Context) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil || body.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	t, err := h.Tickets.Validate(c.Request().Context(), body.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"valid": true, "ticket": toTicketResp(t)})
}

// Redeem handles POST /v1/admin/tickets/:id/redeem, marking the
// ticket used at the door.  Redeeming is idempotent; a repeated
// scan settles in the same redeemed state.
func (h *TicketHandler) Redeem(c echo.Context) error {
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Tickets.Invalidate(c.Request().Context(), ticketID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
