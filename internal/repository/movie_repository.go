package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
)

// MovieRepo provides CRUD operations for the movie catalog.  All
// timestamp fields are stored in UTC.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to the given database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, description, duration_min, genre, is_active, created_at, updated_at`

func scanMovie(row interface{ Scan(...any) error }) (*model.Movie, error) {
	var m model.Movie
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMin, &m.Genre, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrMovieNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ByID fetches a single movie.
func (r *MovieRepo) ByID(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE id = ?`
	return scanMovie(conn(ctx, r.db).QueryRowContext(ctx, q, id))
}

// Create inserts a new movie and populates its generated ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	m.Title = strings.TrimSpace(m.Title)
	const q = `INSERT INTO movies (title, description, duration_min, genre, is_active) VALUES (?, ?, ?, ?, ?)`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, m.Title, m.Description, m.DurationMin, m.Genre, m.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update rewrites a movie's mutable fields.
func (r *MovieRepo) Update(ctx context.Context, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, description = ?, duration_min = ?, genre = ?, is_active = ? WHERE id = ?`
	res, err := conn(ctx, r.db).ExecContext(ctx, q, m.Title, m.Description, m.DurationMin, m.Genre, m.IsActive, m.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// RowsAffected is also 0 for a no-op update, so confirm the
		// row really is missing before reporting not found
		if _, err := r.ByID(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetActive toggles catalog visibility.
func (r *MovieRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	const q = `UPDATE movies SET is_active = ? WHERE id = ?`
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

// ListActive returns all movies visible in the catalog, newest
// first.
func (r *MovieRepo) ListActive(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE is_active = 1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q)
}

// ListAll returns the full catalog including hidden movies (admin
// view).
func (r *MovieRepo) ListAll(ctx context.Context) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q)
}

func (r *MovieRepo) list(ctx context.Context, q string, args ...any) ([]model.Movie, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMin, &m.Genre, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
