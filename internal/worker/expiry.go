// Package worker runs background jobs.  The expiry sweeper is the
// safety net behind lazy expiry: pending bookings are expired on
// the hot paths when touched, and swept here when nobody touches
// them.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iliyamo/movie-ticket-booking/internal/service"
)

// sweepBatchSize bounds one sweep so a huge backlog cannot hold
// booking locks for long stretches.
const sweepBatchSize = 500

// ExpirySweeper periodically expires pending bookings whose payment
// window elapsed, releasing their seats.
type ExpirySweeper struct {
	bookings  *service.BookingService
	scheduler gocron.Scheduler
	interval  time.Duration
}

// NewExpirySweeper builds a sweeper that runs every interval.
func NewExpirySweeper(bookings *service.BookingService, interval time.Duration) (*ExpirySweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &ExpirySweeper{
		bookings:  bookings,
		scheduler: scheduler,
		interval:  interval,
	}, nil
}

// Start schedules the sweep job and begins running it.  The ctx is
// attached to every sweep so shutdown cancels in-flight work.
func (w *ExpirySweeper) Start(ctx context.Context) error {
	_, err := w.scheduler.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(w.sweep, ctx),
	)
	if err != nil {
		return err
	}
	w.scheduler.Start()
	log.Printf("worker: expiry sweeper running every %s", w.interval)
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep.
func (w *ExpirySweeper) Stop() error {
	return w.scheduler.Shutdown()
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	n, err := w.bookings.ExpireDue(ctx, sweepBatchSize)
	if err != nil {
		log.Printf("worker: expiry sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("worker: expired %d overdue bookings", n)
	}
}
