package handler // handler defines http handlers

import (
	"errors" // errors provides sentinel comparisons for writeError
	"net/http"
	"strconv" // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdmin reports whether the authenticated request carries the ADMIN role.
func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// pathID parses a positive uint64 path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// writeError maps domain errors onto HTTP responses so every handler
// reports failures the same way.  Unknown errors become 500s without
// leaking internals.
func writeError(c echo.Context, err error) error {
	var (
		vErr     *model.ValidationError
		seatErr  *model.SeatUnavailableError
		schedErr *model.ScheduleConflictError
		stateErr *model.InvalidStateError
	)
	switch {
	case errors.Is(err, model.ErrMovieNotFound),
		errors.Is(err, model.ErrShowtimeNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrPaymentNotFound),
		errors.Is(err, model.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrTicketInvalid):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrShowtimeHasBookings):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.As(err, &seatErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": seatErr.Error(), "seat": seatErr.Seat})
	case errors.As(err, &schedErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": schedErr.Error(), "conflicting_showtime_id": schedErr.ShowtimeID})
	case errors.As(err, &stateErr):
		return c.JSON(http.StatusConflict, echo.Map{"error": stateErr.Error()})
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.Error()})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
