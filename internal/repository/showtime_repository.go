package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// ShowtimeRepo persists the screening schedule.  All timestamps are
// stored in UTC.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo returns a ShowtimeRepo bound to the given database.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo { return &ShowtimeRepo{db: db} }

const showtimeColumns = `id, movie_id, screen_number, starts_at, ends_at, total_seats, ticket_price_cents, is_active, created_at, updated_at`

func scanShowtime(row interface{ Scan(...any) error }) (*model.Showtime, error) {
	var st model.Showtime
	err := row.Scan(&st.ID, &st.MovieID, &st.ScreenNumber, &st.StartsAt, &st.EndsAt,
		&st.TotalSeats, &st.TicketPriceCents, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrShowtimeNotFound
		}
		return nil, err
	}
	return &st, nil
}

// ByID fetches a single showtime.
func (r *ShowtimeRepo) ByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE id = ?`
	return scanShowtime(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// Create inserts a new showtime and populates its generated ID.
func (r *ShowtimeRepo) Create(ctx context.Context, st *model.Showtime) error {
	const q = `INSERT INTO showtimes (movie_id, screen_number, starts_at, ends_at, total_seats, ticket_price_cents, is_active)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		st.MovieID, st.ScreenNumber, st.StartsAt.UTC(), st.EndsAt.UTC(),
		st.TotalSeats, st.TicketPriceCents, st.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	return nil
}

// Update rewrites a showtime's schedule and pricing fields.
func (r *ShowtimeRepo) Update(ctx context.Context, st *model.Showtime) error {
	const q = `UPDATE showtimes
               SET movie_id = ?, screen_number = ?, starts_at = ?, ends_at = ?, total_seats = ?, ticket_price_cents = ?
               WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q,
		st.MovieID, st.ScreenNumber, st.StartsAt.UTC(), st.EndsAt.UTC(),
		st.TotalSeats, st.TicketPriceCents, st.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.ByID(ctx, st.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetActive toggles whether the showtime accepts new reservations.
func (r *ShowtimeRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE showtimes SET is_active = ? WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.ByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a showtime row.  The schedule-level guard against
// deleting showtimes with live bookings lives in the service.
func (r *ShowtimeRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM showtimes WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrShowtimeNotFound
	}
	return nil
}

// Overlapping returns showtimes on the screen whose stored interval
// intersects [start, end] inclusively.  The caller widens the
// candidate window by the turnaround buffer before calling.
func (r *ShowtimeRepo) Overlapping(ctx context.Context, screen uint32, start, end time.Time, excludeID uint64) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + `
               FROM showtimes
               WHERE screen_number = ? AND starts_at <= ? AND ends_at >= ? AND id <> ?
               ORDER BY starts_at`
	return r.list(ctx, q, screen, end.UTC(), start.UTC(), excludeID)
}

// ListActive returns showtimes open for booking, soonest first.
func (r *ShowtimeRepo) ListActive(ctx context.Context) ([]model.Showtime, error) {
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE is_active = 1 ORDER BY starts_at`
	return r.list(ctx, q)
}

// ListByMovie returns a movie's showtimes, optionally only those
// starting after the given instant.
func (r *ShowtimeRepo) ListByMovie(ctx context.Context, movieID uint64, after *time.Time) ([]model.Showtime, error) {
	if after != nil {
		const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE movie_id = ? AND starts_at > ? ORDER BY starts_at`
		return r.list(ctx, q, movieID, after.UTC())
	}
	const q = `SELECT ` + showtimeColumns + ` FROM showtimes WHERE movie_id = ? ORDER BY starts_at`
	return r.list(ctx, q, movieID)
}

func (r *ShowtimeRepo) list(ctx context.Context, q string, args ...any) ([]model.Showtime, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Showtime, 0)
	for rows.Next() {
		var st model.Showtime
		if err := rows.Scan(&st.ID, &st.MovieID, &st.ScreenNumber, &st.StartsAt, &st.EndsAt,
			&st.TotalSeats, &st.TicketPriceCents, &st.IsActive, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
