package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// BookingHandler exposes seat reservation and the customer-facing
// booking lifecycle.  Admin-only booking views and the force-cancel
// override live here too.
type BookingHandler struct {
	Bookings *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	if bookings == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings}
}

type bookingResp struct {
	ID              uint64    `json:"id"`
	Reference       string    `json:"reference"`
	ShowtimeID      uint64    `json:"showtime_id"`
	Seats           []string  `json:"seats"`
	TotalPriceCents uint32    `json:"total_price_cents"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at,omitempty"`
}

func (h *BookingHandler) toResp(b *model.Booking) bookingResp {
	resp := bookingResp{
		ID:              b.ID,
		Reference:       b.Reference,
		ShowtimeID:      b.ShowtimeID,
		Seats:           b.Seats,
		TotalPriceCents: b.TotalPriceCents,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
	}
	if b.Status == model.BookingPendingPayment {
		resp.ExpiresAt = b.CreatedAt.Add(h.Bookings.TTL())
	}
	return resp
}

// Reserve handles POST /v1/showtimes/:id/bookings with body
// {"seats": ["A1","A2"]}.  All requested seats are claimed or none.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	showtimeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Seats []string `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	b, err := h.Bookings.Reserve(c.Request().Context(), showtimeID, userID, body.Seats)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, h.toResp(b))
}

// ListMine handles GET /v1/bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Bookings.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for i := range bookings {
		out = append(out, h.toResp(&bookings[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/bookings/:id.  Owners see their own bookings,
// admins see any.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	b, err := h.Bookings.ByIDForUser(c.Request().Context(), bookingID, userID, isAdmin(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.toResp(b))
}

// Cancel handles POST /v1/bookings/:id/cancel.  Only the owner may
// cancel and only while the booking awaits payment.
func (h *BookingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Bookings.Cancel(c.Request().Context(), bookingID, userID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminCancel handles POST /v1/admin/bookings/:id/cancel.  This is
// the only path out of CONFIRMED; the booking's ticket, if issued,
// is invalidated along with it.
func (h *BookingHandler) AdminCancel(c echo.Context) error {
	bookingID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Bookings.AdminCancel(c.Request().Context(), bookingID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListForShowtime handles GET /v1/admin/showtimes/:id/bookings.
func (h *BookingHandler) ListForShowtime(c echo.Context) error {
	showtimeID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	bookings, err := h.Bookings.ListForShowtime(c.Request().Context(), showtimeID)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for i := range bookings {
		out = append(out, h.toResp(&bookings[i]))
	}
	return c.JSON(http.StatusOK, out)
}
