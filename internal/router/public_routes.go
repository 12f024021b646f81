package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/handler"
)

// RegisterPublic registers unauthenticated browse endpoints.  Guests
// can explore the catalog, the schedule and live seat availability
// without an account; booking anything requires authentication.
func RegisterPublic(e *echo.Echo, movies *handler.MovieHandler, showtimes *handler.ShowtimeHandler) {
	// catalog
	e.GET("/v1/movies", movies.List)
	e.GET("/v1/movies/:id", movies.Get)
	e.GET("/v1/movies/:id/showtimes", showtimes.ListByMovie)
	// schedule
	e.GET("/v1/showtimes", showtimes.ListActive)
	e.GET("/v1/showtimes/:id", showtimes.Get)
	// live seat availability, derived from seat-holding bookings
	e.GET("/v1/showtimes/:id/seats", showtimes.Seats)
}
