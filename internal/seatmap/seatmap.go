// Package seatmap derives seat labels from a showtime's seat count.
// Seats are laid out in rows of 10: row letters start at 'A', seat
// numbers run 1..10 per row, and the last row is truncated when the
// total is not a multiple of 10.  The layout is a pure function of
// the seat count and is recomputed wherever it is needed; it is
// never stored.
package seatmap

import (
	"fmt"
	"strconv"
)

// SeatsPerRow is the fixed width of a row.
const SeatsPerRow = 10

// MaxSeats is the largest layout the row lettering supports: rows
// 'A' through 'Z'.  Seat counts above it have no valid labels past
// row 'Z' and are rejected at showtime creation.
const MaxSeats = 26 * SeatsPerRow

// Generate returns every seat label for the given seat count in
// row-major order (A1..A10, B1..B10, ...).  A non-positive count
// yields an empty slice.
func Generate(totalSeats int) []string {
	if totalSeats <= 0 {
		return []string{}
	}
	if totalSeats > MaxSeats {
		totalSeats = MaxSeats
	}
	seats := make([]string, 0, totalSeats)
	rows := (totalSeats + SeatsPerRow - 1) / SeatsPerRow
	for row := 0; row < rows; row++ {
		letter := rune('A' + row)
		inRow := totalSeats - row*SeatsPerRow
		if inRow > SeatsPerRow {
			inRow = SeatsPerRow
		}
		for n := 1; n <= inRow; n++ {
			seats = append(seats, string(letter)+strconv.Itoa(n))
		}
	}
	return seats
}

// Index returns the row-major position of a seat label within the
// layout for totalSeats, or -1 when the label is not part of it.
// Labels are case-sensitive: rows are upper-case letters.
func Index(totalSeats int, label string) int {
	if len(label) < 2 {
		return -1
	}
	row := int(label[0] - 'A')
	if row < 0 || row >= 26 {
		return -1
	}
	n, err := strconv.Atoi(label[1:])
	if err != nil || n < 1 || n > SeatsPerRow {
		return -1
	}
	idx := row*SeatsPerRow + n - 1
	if idx >= totalSeats {
		return -1
	}
	return idx
}

// Contains reports whether the seat label belongs to the layout for
// totalSeats.
func Contains(totalSeats int, label string) bool {
	return Index(totalSeats, label) >= 0
}

// Validate checks a requested seat selection against the layout:
// the list must be non-empty, free of duplicates and every label
// must belong to the layout.  It returns a descriptive error naming
// the offending seat.
func Validate(totalSeats int, labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("at least one seat must be selected")
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if !Contains(totalSeats, l) {
			return fmt.Errorf("seat %s does not exist in this layout", l)
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("seat %s is requested more than once", l)
		}
		seen[l] = struct{}{}
	}
	return nil
}
