package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/config"
	"github.com/iliyamo/movie-ticket-booking/internal/database"
	"github.com/iliyamo/movie-ticket-booking/internal/handler"
	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/queue"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
	"github.com/iliyamo/movie-ticket-booking/internal/router"
	"github.com/iliyamo/movie-ticket-booking/internal/service"
	"github.com/iliyamo/movie-ticket-booking/internal/worker"
)

func main() {
	_ = godotenv.Load() // load .env when present; real env always wins

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// repositories
	txRunner := repository.NewRunner(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	movieRepo := repository.NewMovieRepo(db)
	showtimeRepo := repository.NewShowtimeRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	ticketRepo := repository.NewTicketRepo(db)

	// keyed mutexes serialize per showtime, per screen and per booking.
	// Booking, payment and ticket services MUST share bookingLocks so a
	// payment and a cancel on the same booking never interleave.
	showtimeLocks := lock.NewKeyedMutex()
	screenLocks := lock.NewKeyedMutex()
	bookingLocks := lock.NewKeyedMutex()

	bookingTTL := time.Duration(cfg.BookingTTLMin) * time.Minute
	publisher := queue.NewPublisher()

	bookingSvc := service.NewBookingService(
		txRunner, showtimeRepo, bookingRepo, ticketRepo,
		showtimeLocks, bookingLocks,
		service.WithBookingTTL(bookingTTL),
	)
	showtimeSvc := service.NewShowtimeService(
		txRunner, movieRepo, showtimeRepo, bookingRepo,
		screenLocks,
		service.WithScheduleBuffer(time.Duration(cfg.ScheduleBufferMin)*time.Minute),
	)
	ticketSvc := service.NewTicketService(
		txRunner, bookingRepo, ticketRepo,
		bookingLocks,
	)
	paymentSvc := service.NewPaymentService(
		txRunner, bookingRepo, paymentRepo, showtimeRepo, movieRepo,
		service.SimulatedGateway{}, ticketSvc, publisher,
		bookingLocks,
		service.WithPaymentTTL(bookingTTL),
	)

	// background jobs
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking-consumer: %v", err)
		}
	}()

	sweeper, err := worker.NewExpirySweeper(bookingSvc, time.Duration(cfg.ExpirySweepSec)*time.Second)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	if err := sweeper.Start(context.Background()); err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer func() { _ = sweeper.Stop() }()

	// HTTP layer
	e := echo.New()

	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	} else {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	movieHandler := handler.NewMovieHandler(movieRepo)
	showtimeHandler := handler.NewShowtimeHandler(showtimeSvc, bookingSvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc)
	ticketHandler := handler.NewTicketHandler(ticketSvc)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authHandler, cfg.JWTSecret)
	router.RegisterPublic(e, movieHandler, showtimeHandler)
	router.RegisterCustomer(e, bookingHandler, paymentHandler, ticketHandler, cfg.JWTSecret)
	router.RegisterAdmin(e, movieHandler, showtimeHandler, bookingHandler, paymentHandler, ticketHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
