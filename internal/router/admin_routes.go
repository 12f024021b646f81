package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
)

// RegisterAdmin registers management endpoints under /v1/admin.  All
// routes require a valid JWT with the ADMIN role: catalog and
// schedule management, booking oversight, payment queries and the
// door-side ticket endpoints.
func RegisterAdmin(e *echo.Echo, movies *handler.MovieHandler, showtimes *handler.ShowtimeHandler, bookings *handler.BookingHandler, payments *handler.PaymentHandler, tickets *handler.TicketHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ADMIN"),
	)
	// catalog management
	g.POST("/movies", movies.Create)
	g.PUT("/movies/:id", movies.Update)
	g.PATCH("/movies/:id/active", movies.SetActive)
	// schedule management, guarded by the turnaround-buffer conflict check
	g.POST("/showtimes", showtimes.Create)
	g.PUT("/showtimes/:id", showtimes.Update)
	g.PATCH("/showtimes/:id/active", showtimes.SetActive)
	g.DELETE("/showtimes/:id", showtimes.Delete)
	g.POST("/showtimes/check-conflict", showtimes.CheckConflict)
	g.GET("/showtimes/:id/bookings", bookings.ListForShowtime)
	// booking oversight; the only way out of CONFIRMED
	g.POST("/bookings/:id/cancel", bookings.AdminCancel)
	g.POST("/bookings/:id/ticket", tickets.Issue)
	// payments and the door
	g.GET("/payments", payments.ListByStatus)
	g.POST("/tickets/validate", tickets.Validate)
	g.POST("/tickets/:id/redeem", tickets.Redeem)
}
