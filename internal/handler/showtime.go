package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// ShowtimeHandler exposes schedule browsing for everyone and
// schedule management (create, update, activate, delete, conflict
// dry-run) for admins.
type ShowtimeHandler struct {
	Showtimes *service.ShowtimeService
	Bookings  *service.BookingService
}

// NewShowtimeHandler constructs a ShowtimeHandler.
func NewShowtimeHandler(showtimes *service.ShowtimeService, bookings *service.BookingService) *ShowtimeHandler {
	if showtimes == nil || bookings == nil {
		panic("nil service passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{Showtimes: showtimes, Bookings: bookings}
}

type showtimeReq struct {
	MovieID          uint64    `json:"movie_id"`
	ScreenNumber     uint32    `json:"screen_number"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	TotalSeats       uint32    `json:"total_seats"`
	TicketPriceCents uint32    `json:"ticket_price_cents"`
}

func (r showtimeReq) input() service.ShowtimeInput {
	return service.ShowtimeInput{
		MovieID:          r.MovieID,
		ScreenNumber:     r.ScreenNumber,
		StartsAt:         r.StartsAt,
		EndsAt:           r.EndsAt,
		TotalSeats:       r.TotalSeats,
		TicketPriceCents: r.TicketPriceCents,
	}
}

type showtimeResp struct {
	ID               uint64    `json:"id"`
	MovieID          uint64    `json:"movie_id"`
	ScreenNumber     uint32    `json:"screen_number"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
	TotalSeats       uint32    `json:"total_seats"`
	TicketPriceCents uint32    `json:"ticket_price_cents"`
	IsActive         bool      `json:"is_active"`
}

func toShowtimeResp(st *model.Showtime) showtimeResp {
	return showtimeResp{
		ID:               st.ID,
		MovieID:          st.MovieID,
		ScreenNumber:     st.ScreenNumber,
		StartsAt:         st.StartsAt,
		EndsAt:           st.EndsAt,
		TotalSeats:       st.TotalSeats,
		TicketPriceCents: st.TicketPriceCents,
		IsActive:         st.IsActive,
	}
}

// ListActive handles GET /v1/showtimes.
func (h *ShowtimeHandler) ListActive(c echo.Context) error {
	showtimes, err := h.Showtimes.ListActive(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	out := make([]showtimeResp, 0, len(showtimes))
	for i := range showtimes {
		out = append(out, toShowtimeResp(&showtimes[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// ListByMovie handles GET /v1/movies/:id/showtimes.  The optional
// ?upcoming=true query restricts results to future screenings.
func (h *ShowtimeHandler) ListByMovie(c echo.Context) error {
	movieID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var after *time.Time
	if c.QueryParam("upcoming") == "true" {
		now := time.Now().UTC()
		after = &now
	}
	showtimes, err := h.Showtimes.ListByMovie(c.Request().Context(), movieID, after)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]showtimeResp, 0, len(showtimes))
	for i := range showtimes {
		out = append(out, toShowtimeResp(&showtimes[i]))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/showtimes/:id.
func (h *ShowtimeHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	st, err := h.Showtimes.ByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toShowtimeResp(st))
}

// Seats handles GET /v1/showtimes/:id/seats.  It returns the full
// layout together with booked and free seats at this instant.
func (h *ShowtimeHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	av, err := h.Bookings.Availability(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

// Create handles POST /v1/admin/showtimes.
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req showtimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	st, err := h.Showtimes.Create(c.Request().Context(), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toShowtimeResp(st))
}

// Update handles PUT /v1/admin/showtimes/:id.
func (h *ShowtimeHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req showtimeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	st, err := h.Showtimes.Update(c.Request().Context(), id, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toShowtimeResp(st))
}

// SetActive handles PATCH /v1/admin/showtimes/:id/active.
func (h *ShowtimeHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&body); err != nil || body.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active is required"})
	}
	if err := h.Showtimes.SetActive(c.Request().Context(), id, *body.Active); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /v1/admin/showtimes/:id.  Refused with 409
// while bookings still hold seats.
func (h *ShowtimeHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Showtimes.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CheckConflict handles POST /v1/admin/showtimes/check-conflict.  It
// runs the turnaround-buffer check without scheduling anything, so
// admins can probe a slot before committing to it.
func (h *ShowtimeHandler) CheckConflict(c echo.Context) error {
	var req struct {
		ScreenNumber uint32    `json:"screen_number"`
		StartsAt     time.Time `json:"starts_at"`
		EndsAt       time.Time `json:"ends_at"`
		ExcludeID    uint64    `json:"exclude_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	err := h.Showtimes.CheckConflict(c.Request().Context(), req.ScreenNumber, req.StartsAt, req.EndsAt, req.ExcludeID)
	if err != nil {
		var conflict *model.ScheduleConflictError
		if errors.As(err, &conflict) {
			return c.JSON(http.StatusOK, echo.Map{"conflict": true, "conflicting_showtime_id": conflict.ShowtimeID})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflict": false})
}
