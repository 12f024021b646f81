package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// memStore is an in-memory implementation of every store interface,
// backing the service tests without a database.  A single mutex
// guards all maps; WithTx simply runs the function, since the
// fake's operations are individually atomic and the services
// already serialize conflicting units of work through their keyed
// locks.
type memStore struct {
	mu        sync.Mutex
	movies    map[uint64]*model.Movie
	showtimes map[uint64]*model.Showtime
	bookings  map[uint64]*model.Booking
	payments  map[uint64]*model.Payment
	tickets   map[uint64]*model.Ticket
	nextID    uint64
}

func newMemStore() *memStore {
	return &memStore{
		movies:    make(map[uint64]*model.Movie),
		showtimes: make(map[uint64]*model.Showtime),
		bookings:  make(map[uint64]*model.Booking),
		payments:  make(map[uint64]*model.Payment),
		tickets:   make(map[uint64]*model.Ticket),
	}
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) addMovie(title string) *model.Movie {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv := &model.Movie{ID: m.id(), Title: title, DurationMin: 120, IsActive: true}
	m.movies[mv.ID] = mv
	return mv
}

func (m *memStore) addShowtime(movieID uint64, screen uint32, start, end time.Time, seats, price uint32) *model.Showtime {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &model.Showtime{
		ID:               m.id(),
		MovieID:          movieID,
		ScreenNumber:     screen,
		StartsAt:         start,
		EndsAt:           end,
		TotalSeats:       seats,
		TicketPriceCents: price,
		IsActive:         true,
	}
	m.showtimes[st.ID] = st
	return st
}

func (m *memStore) ByID(ctx context.Context, id uint64) (*model.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.movies[id]
	if !ok {
		return nil, model.ErrMovieNotFound
	}
	cp := *mv
	return &cp, nil
}

// showtimeStore adapts memStore to ShowtimeStore; a separate type is
// needed because MovieStore.ByID and ShowtimeStore.ByID collide.
type showtimeStore struct{ *memStore }

func (s showtimeStore) ByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[id]
	if !ok {
		return nil, model.ErrShowtimeNotFound
	}
	cp := *st
	return &cp, nil
}

func (s showtimeStore) Create(ctx context.Context, st *model.Showtime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.id()
	cp := *st
	s.showtimes[st.ID] = &cp
	return nil
}

func (s showtimeStore) Update(ctx context.Context, st *model.Showtime) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.showtimes[st.ID]; !ok {
		return model.ErrShowtimeNotFound
	}
	cp := *st
	s.showtimes[st.ID] = &cp
	return nil
}

func (s showtimeStore) SetActive(ctx context.Context, id uint64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.showtimes[id]
	if !ok {
		return model.ErrShowtimeNotFound
	}
	st.IsActive = active
	return nil
}

func (s showtimeStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.showtimes[id]; !ok {
		return model.ErrShowtimeNotFound
	}
	delete(s.showtimes, id)
	return nil
}

func (s showtimeStore) Overlapping(ctx context.Context, screen uint32, start, end time.Time, excludeID uint64) ([]model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Showtime
	for _, st := range s.showtimes {
		if st.ScreenNumber != screen || st.ID == excludeID {
			continue
		}
		if !st.StartsAt.After(end) && !st.EndsAt.Before(start) {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (s showtimeStore) ListActive(ctx context.Context) ([]model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Showtime
	for _, st := range s.showtimes {
		if st.IsActive {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s showtimeStore) ListByMovie(ctx context.Context, movieID uint64, after *time.Time) ([]model.Showtime, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Showtime
	for _, st := range s.showtimes {
		if st.MovieID != movieID {
			continue
		}
		if after != nil && !st.StartsAt.After(*after) {
			continue
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// bookingStore adapts memStore to BookingStore.
type bookingStore struct{ *memStore }

func (s bookingStore) ByID(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, model.ErrBookingNotFound
	}
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	return &cp, nil
}

func (s bookingStore) Create(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	s.bookings[b.ID] = &cp
	return nil
}

func (s bookingStore) UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.ErrBookingNotFound
	}
	if b.Status != from {
		return model.ErrStaleTransition
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (s bookingStore) SeatsHeld(ctx context.Context, showtimeID uint64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, b := range s.bookings {
		if b.ShowtimeID == showtimeID && b.Status.HoldsSeats() {
			out = append(out, b.Seats...)
		}
	}
	return out, nil
}

func (s bookingStore) PendingCreatedBefore(ctx context.Context, showtimeID uint64, cutoff time.Time) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, b := range s.bookings {
		if b.ShowtimeID == showtimeID && b.Status == model.BookingPendingPayment && b.CreatedAt.Before(cutoff) {
			out = append(out, b.ID)
		}
	}
	return out, nil
}

func (s bookingStore) DueForExpiry(ctx context.Context, cutoff time.Time, limit int) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, b := range s.bookings {
		if b.Status == model.BookingPendingPayment && b.CreatedAt.Before(cutoff) {
			out = append(out, b.ID)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s bookingStore) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s bookingStore) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ShowtimeID == showtimeID {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s bookingStore) AnyHoldingForShowtime(ctx context.Context, showtimeID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ShowtimeID == showtimeID && b.Status.HoldsSeats() {
			return true, nil
		}
	}
	return false, nil
}

// paymentStore adapts memStore to PaymentStore.
type paymentStore struct{ *memStore }

func (s paymentStore) ByID(ctx context.Context, id uint64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (s paymentStore) ByBookingID(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, model.ErrPaymentNotFound
}

func (s paymentStore) Create(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.id()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s paymentStore) Supersede(ctx context.Context, p *model.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return model.ErrPaymentNotFound
	}
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s paymentStore) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, p := range s.payments {
		if p.Status == status {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ticketStore adapts memStore to TicketStore.
type ticketStore struct{ *memStore }

func (s ticketStore) ByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, model.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (s ticketStore) ByBookingID(ctx context.Context, bookingID uint64) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.BookingID == bookingID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, model.ErrTicketNotFound
}

func (s ticketStore) ByCode(ctx context.Context, code string) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, model.ErrTicketNotFound
}

func (s ticketStore) Create(ctx context.Context, t *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	cp := *t
	s.tickets[t.ID] = &cp
	return nil
}

func (s ticketStore) SetValid(ctx context.Context, id uint64, valid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return model.ErrTicketNotFound
	}
	t.IsValid = valid
	return nil
}

func (s ticketStore) InvalidateByBooking(ctx context.Context, bookingID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tickets {
		if t.BookingID == bookingID {
			t.IsValid = false
		}
	}
	return nil
}
