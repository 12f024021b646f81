package service

import (
	"context"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/lock"
	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/seatmap"
)

// defaultScheduleBuffer is the cleaning and turnaround gap enforced
// between consecutive screenings on the same screen.
const defaultScheduleBuffer = 30 * time.Minute

// ShowtimeInput carries the fields accepted when creating or
// updating a showtime.  TotalSeats of zero falls back to
// model.DefaultTotalSeats.
type ShowtimeInput struct {
	MovieID          uint64
	ScreenNumber     uint32
	StartsAt         time.Time
	EndsAt           time.Time
	TotalSeats       uint32
	TicketPriceCents uint32
}

// ShowtimeService manages the screening schedule.  Writes to one
// screen's schedule are serialized through screenLocks so the
// conflict check and the insert behave as one atomic unit; checks
// against different screens run concurrently.
type ShowtimeService struct {
	tx          TxRunner
	movies      MovieStore
	showtimes   ShowtimeStore
	bookings    BookingStore
	screenLocks *lock.KeyedMutex
	buffer      time.Duration
}

// ShowtimeOption customizes a ShowtimeService.
type ShowtimeOption func(*ShowtimeService)

// WithScheduleBuffer overrides the gap required between screenings
// on the same screen.
func WithScheduleBuffer(d time.Duration) ShowtimeOption {
	return func(s *ShowtimeService) {
		if d >= 0 {
			s.buffer = d
		}
	}
}

// NewShowtimeService wires the service.
func NewShowtimeService(tx TxRunner, movies MovieStore, showtimes ShowtimeStore, bookings BookingStore, screenLocks *lock.KeyedMutex, opts ...ShowtimeOption) *ShowtimeService {
	s := &ShowtimeService{
		tx:          tx,
		movies:      movies,
		showtimes:   showtimes,
		bookings:    bookings,
		screenLocks: screenLocks,
		buffer:      defaultScheduleBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ShowtimeService) validate(in ShowtimeInput) error {
	if in.MovieID == 0 {
		return model.Validationf("movie is required")
	}
	if in.ScreenNumber == 0 {
		return model.Validationf("screen number must be positive")
	}
	if !in.EndsAt.After(in.StartsAt) {
		return model.Validationf("showtime must end after it starts")
	}
	if in.TicketPriceCents == 0 {
		return model.Validationf("ticket price must be positive")
	}
	if in.TotalSeats > seatmap.MaxSeats {
		return model.Validationf("total seats cannot exceed %d", seatmap.MaxSeats)
	}
	return nil
}

// checkConflict fails with ScheduleConflictError when any other
// showtime on the screen sits closer than the buffer to the
// candidate window.  The buffer extends the candidate's window on
// both sides and is compared against each existing window as
// stored: a screening ending at 16:00 blocks a 16:10 start but not
// a 16:31 one.  excludeID skips the showtime being updated.
func (s *ShowtimeService) checkConflict(ctx context.Context, screen uint32, start, end time.Time, excludeID uint64) error {
	overlapping, err := s.showtimes.Overlapping(ctx, screen, start.Add(-s.buffer), end.Add(s.buffer), excludeID)
	if err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return &model.ScheduleConflictError{ShowtimeID: overlapping[0].ID}
	}
	return nil
}

// CheckConflict reports whether a candidate window can be scheduled
// on the screen, without creating anything.  Exposed for the admin
// dry-run endpoint.
func (s *ShowtimeService) CheckConflict(ctx context.Context, screen uint32, start, end time.Time, excludeID uint64) error {
	if !end.After(start) {
		return model.Validationf("showtime must end after it starts")
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		return s.checkConflict(ctx, screen, start, end, excludeID)
	})
}

// Create schedules a new showtime after validating the input,
// resolving the movie and passing the conflict check.  The showtime
// is created active.
func (s *ShowtimeService) Create(ctx context.Context, in ShowtimeInput) (*model.Showtime, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	s.screenLocks.Lock(uint64(in.ScreenNumber))
	defer s.screenLocks.Unlock(uint64(in.ScreenNumber))

	var created *model.Showtime
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.movies.ByID(ctx, in.MovieID); err != nil {
			return err
		}
		if err := s.checkConflict(ctx, in.ScreenNumber, in.StartsAt, in.EndsAt, 0); err != nil {
			return err
		}
		total := in.TotalSeats
		if total == 0 {
			total = model.DefaultTotalSeats
		}
		st := &model.Showtime{
			MovieID:          in.MovieID,
			ScreenNumber:     in.ScreenNumber,
			StartsAt:         in.StartsAt.UTC(),
			EndsAt:           in.EndsAt.UTC(),
			TotalSeats:       total,
			TicketPriceCents: in.TicketPriceCents,
			IsActive:         true,
		}
		if err := s.showtimes.Create(ctx, st); err != nil {
			return err
		}
		created = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update reschedules or reprices a showtime.  The conflict check
// runs against the new window, excluding the showtime itself.
// Showtimes that already have seat-holding bookings cannot change
// seat count below the highest seat already sold, so the update is
// rejected outright when bookings exist and TotalSeats shrinks.
func (s *ShowtimeService) Update(ctx context.Context, id uint64, in ShowtimeInput) (*model.Showtime, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	s.screenLocks.Lock(uint64(in.ScreenNumber))
	defer s.screenLocks.Unlock(uint64(in.ScreenNumber))

	var updated *model.Showtime
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		st, err := s.showtimes.ByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.movies.ByID(ctx, in.MovieID); err != nil {
			return err
		}
		if err := s.checkConflict(ctx, in.ScreenNumber, in.StartsAt, in.EndsAt, id); err != nil {
			return err
		}
		total := in.TotalSeats
		if total == 0 {
			total = model.DefaultTotalSeats
		}
		if total < st.TotalSeats {
			held, err := s.bookings.AnyHoldingForShowtime(ctx, id)
			if err != nil {
				return err
			}
			if held {
				return model.InvalidStatef("cannot shrink seating while bookings exist")
			}
		}
		st.MovieID = in.MovieID
		st.ScreenNumber = in.ScreenNumber
		st.StartsAt = in.StartsAt.UTC()
		st.EndsAt = in.EndsAt.UTC()
		st.TotalSeats = total
		st.TicketPriceCents = in.TicketPriceCents
		if err := s.showtimes.Update(ctx, st); err != nil {
			return err
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetActive toggles whether a showtime accepts new reservations.
// Deactivation does not touch existing bookings.
func (s *ShowtimeService) SetActive(ctx context.Context, id uint64, active bool) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.showtimes.ByID(ctx, id); err != nil {
			return err
		}
		return s.showtimes.SetActive(ctx, id, active)
	})
}

// Delete removes a showtime permanently.  Refused while any booking
// still holds seats for it; cancelled and expired bookings do not
// block deletion.
func (s *ShowtimeService) Delete(ctx context.Context, id uint64) error {
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.showtimes.ByID(ctx, id); err != nil {
			return err
		}
		held, err := s.bookings.AnyHoldingForShowtime(ctx, id)
		if err != nil {
			return err
		}
		if held {
			return model.ErrShowtimeHasBookings
		}
		return s.showtimes.Delete(ctx, id)
	})
}

// ByID returns a single showtime.
func (s *ShowtimeService) ByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return s.showtimes.ByID(ctx, id)
}

// ListActive returns all showtimes open for booking.
func (s *ShowtimeService) ListActive(ctx context.Context) ([]model.Showtime, error) {
	return s.showtimes.ListActive(ctx)
}

// ListByMovie returns a movie's showtimes, optionally limited to
// those starting after the given instant.
func (s *ShowtimeService) ListByMovie(ctx context.Context, movieID uint64, after *time.Time) ([]model.Showtime, error) {
	if _, err := s.movies.ByID(ctx, movieID); err != nil {
		return nil, err
	}
	return s.showtimes.ListByMovie(ctx, movieID, after)
}
