package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
)

// RegisterCustomer registers booking-flow endpoints under /v1.  All
// routes require a valid JWT; both customers and admins may book.
// Ownership checks happen in the services, so an authenticated user
// can only ever touch their own bookings here.
func RegisterCustomer(e *echo.Echo, bookings *handler.BookingHandler, payments *handler.PaymentHandler, tickets *handler.TicketHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "ADMIN"),
	)
	// reserve seats: all-or-nothing claim that opens the payment window
	g.POST("/showtimes/:id/bookings", bookings.Reserve)
	g.GET("/bookings", bookings.ListMine)
	g.GET("/bookings/:id", bookings.Get)
	g.POST("/bookings/:id/cancel", bookings.Cancel)
	// pay for a pending booking; success confirms it and issues the ticket
	g.POST("/bookings/:id/payment", payments.Pay)
	g.GET("/bookings/:id/payment", payments.GetForBooking)
	g.GET("/bookings/:id/ticket", tickets.GetForBooking)
}
