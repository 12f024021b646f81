package model

import "time"

// Movie represents an entry in the movie catalog.  Showtimes
// reference movies by ID; the booking engine only needs the
// catalog for existence checks and titles, so the record is
// intentionally small.
//
// Fields:
//
//	ID          – primary key identifier.
//	Title       – display title of the movie.
//	Description – synopsis shown on listing pages.
//	DurationMin – running time in minutes.
//	Genre       – free-form genre label.
//	IsActive    – whether the movie is visible in the catalog.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Movie struct {
	ID          uint64    // movies.id
	Title       string    // movies.title
	Description string    // movies.description
	DurationMin uint32    // movies.duration_min
	Genre       string    // movies.genre
	IsActive    bool      // movies.is_active
	CreatedAt   time.Time // movies.created_at
	UpdatedAt   time.Time // movies.updated_at
}
